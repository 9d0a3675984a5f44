// package services defines typed clients for the external music providers.
//
// Spotify (catalog: playlists, audio features, artists, recommendations) and
// YouTube (video: search, playlist create/add). Every provider call is routed
// through the provider's [ratelimit.Limiter] instance.
package services

import (
	"context"

	"github.com/desertthunder/songgraph/internal/models"
)

// CatalogService defines the read-only catalog provider consumed during ingestion.
type CatalogService interface {
	// Authenticate supplies a bearer token directly or performs the client
	// credentials exchange when the token is empty.
	Authenticate(ctx context.Context, accessToken string) error

	// PlaylistTracks fetches every track on a playlist, page by page, with
	// per-track audio features attached.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Artist fetches a single artist by id.
	Artist(ctx context.Context, artistID string) (*models.Artist, error)

	// Recommendations fetches provider recommendations for the seed tracks,
	// optionally constrained by numeric feature targets.
	Recommendations(ctx context.Context, seedIDs []string, hints models.FeatureHints, limit int) ([]models.Track, error)

	// Name returns the provider name
	Name() string
}

// VideoService defines the video provider used for playlist exports.
type VideoService interface {
	// Authenticate stores the bearer token used for playlist mutations.
	Authenticate(ctx context.Context, accessToken string) error

	// SearchVideo returns the best match for a query, or nil when the
	// provider returns no results.
	SearchVideo(ctx context.Context, query string) (*models.Video, error)

	// CreatePlaylist creates an empty playlist and returns its id.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// AddVideo appends a video to a playlist.
	AddVideo(ctx context.Context, playlistID, videoID string) error

	// BuildPlaylist creates a playlist and populates it by searching each
	// query and adding the best match. Individual query failures are
	// recorded, never fatal.
	BuildPlaylist(ctx context.Context, name, description string, queries []string) (*models.CreatedPlaylist, error)

	// Name returns the provider name
	Name() string
}
