package tasks

import (
	"fmt"

	"github.com/desertthunder/songgraph/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase, zero when not known up front
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	StoreTracks
	FetchArtists
	ScoreTracks
	BuildPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case StoreTracks:
		return "store_tracks"
	case FetchArtists:
		return "fetch_artists"
	case ScoreTracks:
		return "score_tracks"
	case BuildPlaylist:
		return "build_playlist"
	default:
		return ""
	}
}

func fetchPlaylistUpdate(playlistID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching playlist %s...", playlistID),
	}
}

func storeTrackUpdate(step, total int, track *models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StoreTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Storing: %s", step, total, track.Name),
	}
}

// Artists are discovered while tracks stream in, so the artist phase has no
// total known up front.
func fetchArtistUpdate(step int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    step,
		Message: fmt.Sprintf("[%d] Fetching artist: %s", step, name),
	}
}

func artistSkippedUpdate(step int, id string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchArtists,
		Step:    step,
		Message: fmt.Sprintf("[%d] ✗ artist %s: %v", step, id, err),
	}
}

func scoreTracksUpdate(seedCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScoreTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scoring stored tracks against %d seed(s)...", seedCount),
	}
}

func buildPlaylistUpdate(name string, queries int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Building playlist %q from %d track(s)...", name, queries),
	}
}

func playlistBuiltUpdate(created *models.CreatedPlaylist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   BuildPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (%d added, %d not found)", created.ID, created.TracksAdded, len(created.TracksNotFound)),
		Data:    created,
	}
}
