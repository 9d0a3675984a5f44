// package graph persists the playlist property graph and serves similarity queries.
//
// Nodes are tracks, artists and albums; edges are PERFORMED (artist → track)
// and CONTAINS (album → track). Every write is an upsert keyed by provider
// id, so re-importing a playlist never duplicates nodes or edges.
package graph

import (
	"context"

	"github.com/desertthunder/songgraph/internal/models"
)

// Store is the graph capability consumed by the ingestion pipeline (write
// path) and similarity retrieval (read-only path).
type Store interface {
	// UpsertTrack merges a track node by id, along with its performer and
	// album edges.
	UpsertTrack(ctx context.Context, track *models.Track) error

	// UpsertArtist merges an artist node by id.
	UpsertArtist(ctx context.Context, artist *models.Artist) error

	// Track reads a single track with resolved edges.
	Track(ctx context.Context, id string) (*models.Track, error)

	// AllTracks reads every track, most popular first.
	AllTracks(ctx context.Context) ([]models.Track, error)

	// AllArtists reads every artist, most popular first.
	AllArtists(ctx context.Context) ([]models.Artist, error)

	// SimilarTracks scores all non-seed tracks against the seed feature
	// vector and returns the closest matches, most similar first.
	SimilarTracks(ctx context.Context, seedIDs []string, limit int) ([]models.Track, error)
}
