// package tasks implements playlist ingestion and retrieval pipelines.
//
// The core abstraction is GraphEngine, which orchestrates pulling playlists
// out of the catalog provider into the graph store, scoring stored tracks for
// similarity, and materializing recommendation playlists on the video
// provider. Operations emit progress updates via channels for non-blocking
// status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songgraph/internal/graph"
	"github.com/desertthunder/songgraph/internal/models"
	"github.com/desertthunder/songgraph/internal/services"
	"github.com/desertthunder/songgraph/internal/shared"
)

// GraphEngine defines the ingestion and retrieval operations over the graph.
type GraphEngine interface {
	// Import pulls a playlist from the catalog provider and persists its
	// tracks and artists into the graph store.
	Import(ctx context.Context, playlistRef, accessToken string, progress chan<- ProgressUpdate) (*models.ImportResult, error)

	// Recommend returns the stored tracks most similar to the seed tracks.
	Recommend(ctx context.Context, seedIDs []string, limit int) ([]models.Track, error)

	// BuildFromRecommendations creates a playlist on the video provider from
	// the tracks most similar to the seeds.
	BuildFromRecommendations(ctx context.Context, name, description string, seedIDs []string, limit int, progress chan<- ProgressUpdate) (*models.CreatedPlaylist, error)
}

// ImportEngine implements GraphEngine over a catalog service, a video
// service, and a graph store.
type ImportEngine struct {
	catalog services.CatalogService
	video   services.VideoService
	store   graph.Store
	logger  *log.Logger
}

// NewImportEngine creates an ImportEngine with the provided dependencies.
// The video service may be nil when only import and retrieval are needed.
func NewImportEngine(catalog services.CatalogService, video services.VideoService, store graph.Store, logger *log.Logger) *ImportEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ImportEngine{
		catalog: catalog,
		video:   video,
		store:   store,
		logger:  logger,
	}
}

// ExtractPlaylistID accepts a bare playlist id, a provider URL, or a URI and
// returns the trailing id segment with any query string stripped.
func ExtractPlaylistID(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if i := strings.IndexByte(trimmed, '?'); i >= 0 {
		trimmed = trimmed[:i]
	}
	trimmed = strings.TrimSuffix(trimmed, "/")

	if i := strings.LastIndexByte(trimmed, '/'); i >= 0 {
		trimmed = trimmed[i+1:]
	}
	if i := strings.LastIndexByte(trimmed, ':'); i >= 0 {
		trimmed = trimmed[i+1:]
	}

	if trimmed == "" {
		return "", fmt.Errorf("%w: empty playlist reference", shared.ErrBadInput)
	}
	return trimmed, nil
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ImportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Import pulls a playlist into the graph store.
//
// Storage failures abort the import. A failed artist fetch does not: the
// track's performance credits are already persisted with the track, so the
// artist node is skipped with a warning and the rest of the import continues.
func (e *ImportEngine) Import(ctx context.Context, playlistRef, accessToken string, progress chan<- ProgressUpdate) (*models.ImportResult, error) {
	if e.catalog == nil {
		return nil, fmt.Errorf("%w: catalog service not initialized", shared.ErrUpstreamUnavailable)
	}
	if e.store == nil {
		return nil, fmt.Errorf("%w: graph store not initialized", shared.ErrStorageFailure)
	}

	playlistID, err := ExtractPlaylistID(playlistRef)
	if err != nil {
		return nil, err
	}

	started := time.Now()

	if err := e.catalog.Authenticate(ctx, accessToken); err != nil {
		return nil, err
	}

	e.sendProgress(progress, fetchPlaylistUpdate(playlistID))
	e.logger.Info("importing playlist", "playlist_id", playlistID)

	tracks, err := e.catalog.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	seenArtists := make(map[string]bool)
	artistsImported := 0

	for i, track := range tracks {
		e.sendProgress(progress, storeTrackUpdate(i+1, len(tracks), &track))

		if err := e.store.UpsertTrack(ctx, &track); err != nil {
			return nil, err
		}

		for j, artistID := range track.ArtistIDs {
			if seenArtists[artistID] {
				continue
			}
			seenArtists[artistID] = true

			name := artistID
			if j < len(track.ArtistNames) {
				name = track.ArtistNames[j]
			}
			e.sendProgress(progress, fetchArtistUpdate(len(seenArtists), name))

			artist, err := e.catalog.Artist(ctx, artistID)
			if err != nil {
				e.logger.Warn("skipping artist", "artist_id", artistID, "error", err)
				e.sendProgress(progress, artistSkippedUpdate(len(seenArtists), artistID, err))
				continue
			}

			if err := e.store.UpsertArtist(ctx, artist); err != nil {
				return nil, err
			}
			artistsImported++
		}
	}

	result := &models.ImportResult{
		PlaylistID:      playlistID,
		TracksImported:  len(tracks),
		ArtistsImported: artistsImported,
		Duration:        time.Since(started),
	}

	e.logger.Info("import complete",
		"playlist_id", playlistID,
		"tracks", result.TracksImported,
		"artists", result.ArtistsImported,
		"duration", result.Duration,
	)
	return result, nil
}

// Recommend returns the stored tracks most similar to the seeds.
func (e *ImportEngine) Recommend(ctx context.Context, seedIDs []string, limit int) ([]models.Track, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: graph store not initialized", shared.ErrStorageFailure)
	}
	return e.store.SimilarTracks(ctx, seedIDs, limit)
}

// BuildFromRecommendations scores the graph against the seeds and creates a
// playlist of the closest matches on the video provider.
func (e *ImportEngine) BuildFromRecommendations(ctx context.Context, name, description string, seedIDs []string, limit int, progress chan<- ProgressUpdate) (*models.CreatedPlaylist, error) {
	if e.video == nil {
		return nil, fmt.Errorf("%w: video service not initialized", shared.ErrUpstreamUnavailable)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrBadInput)
	}

	e.sendProgress(progress, scoreTracksUpdate(len(seedIDs)))

	tracks, err := e.Recommend(ctx, seedIDs, limit)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no similar tracks in graph", shared.ErrNotFound)
	}

	queries := make([]string, len(tracks))
	for i, track := range tracks {
		queries[i] = services.FormatSearchQuery(track.Name, track.ArtistNames)
	}

	e.sendProgress(progress, buildPlaylistUpdate(name, len(queries)))

	created, err := e.video.BuildPlaylist(ctx, name, description, queries)
	if err != nil {
		return nil, err
	}

	e.sendProgress(progress, playlistBuiltUpdate(created))
	return created, nil
}
