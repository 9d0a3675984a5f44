package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/desertthunder/songgraph/internal/models"
	"github.com/desertthunder/songgraph/internal/shared"
)

// tempoScale normalizes the tempo delta (BPM) into the same range as the
// 0.0–1.0 feature deltas when scoring similarity.
const tempoScale = 200.0

// SQLiteStore implements [Store] on a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a store over an open database connection and
// ensures the schema exists.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	return &SQLiteStore{db: db}, nil
}

// UpsertTrack merges a track node by id along with its performer and album edges.
func (s *SQLiteStore) UpsertTrack(ctx context.Context, track *models.Track) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tracks (
			id, name, album_id, album_name, duration_ms, popularity, explicit,
			danceability, energy, key, loudness, mode, speechiness,
			acousticness, instrumentalness, liveness, valence, tempo,
			time_signature, preview_url, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			album_id = excluded.album_id,
			album_name = excluded.album_name,
			duration_ms = excluded.duration_ms,
			popularity = excluded.popularity,
			explicit = excluded.explicit,
			danceability = excluded.danceability,
			energy = excluded.energy,
			key = excluded.key,
			loudness = excluded.loudness,
			mode = excluded.mode,
			speechiness = excluded.speechiness,
			acousticness = excluded.acousticness,
			instrumentalness = excluded.instrumentalness,
			liveness = excluded.liveness,
			valence = excluded.valence,
			tempo = excluded.tempo,
			time_signature = excluded.time_signature,
			preview_url = excluded.preview_url,
			updated_at = excluded.updated_at
	`,
		track.ID, track.Name, track.AlbumID, track.AlbumName, track.DurationMS,
		track.Popularity, track.Explicit,
		track.Danceability, track.Energy, track.Key, track.Loudness, track.Mode,
		track.Speechiness, track.Acousticness, track.Instrumentalness,
		track.Liveness, track.Valence, track.Tempo, track.TimeSignature,
		track.PreviewURL, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%w: failed to upsert track %s: %v", shared.ErrStorageFailure, track.ID, err)
	}

	for i, artistID := range track.ArtistIDs {
		name := ""
		if i < len(track.ArtistNames) {
			name = track.ArtistNames[i]
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO performed (artist_id, track_id, artist_name, position)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(artist_id, track_id) DO UPDATE SET
				artist_name = excluded.artist_name,
				position = excluded.position
		`, artistID, track.ID, name, i)
		if err != nil {
			return fmt.Errorf("%w: failed to upsert performed edge: %v", shared.ErrStorageFailure, err)
		}
	}

	// A track with an empty album id has no CONTAINS edge.
	if track.AlbumID != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO albums (id, name) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name
		`, track.AlbumID, track.AlbumName)
		if err != nil {
			return fmt.Errorf("%w: failed to upsert album: %v", shared.ErrStorageFailure, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO contains (album_id, track_id) VALUES (?, ?)
			ON CONFLICT(album_id, track_id) DO NOTHING
		`, track.AlbumID, track.ID)
		if err != nil {
			return fmt.Errorf("%w: failed to upsert contains edge: %v", shared.ErrStorageFailure, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	return nil
}

// UpsertArtist merges an artist node by id.
func (s *SQLiteStore) UpsertArtist(ctx context.Context, artist *models.Artist) error {
	genres, err := json.Marshal(artist.Genres)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO artists (id, name, genres, popularity, followers, image_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			genres = excluded.genres,
			popularity = excluded.popularity,
			followers = excluded.followers,
			image_url = excluded.image_url,
			updated_at = excluded.updated_at
	`, artist.ID, artist.Name, string(genres), artist.Popularity, artist.Followers, artist.ImageURL, time.Now())
	if err != nil {
		return fmt.Errorf("%w: failed to upsert artist %s: %v", shared.ErrStorageFailure, artist.ID, err)
	}

	return nil
}

const trackColumns = `id, name, album_id, album_name, duration_ms, popularity, explicit,
	danceability, energy, key, loudness, mode, speechiness, acousticness,
	instrumentalness, liveness, valence, tempo, time_signature, preview_url`

// scanTrack scans one track row without its performer edges.
func scanTrack(scanner interface{ Scan(...any) error }) (*models.Track, error) {
	var t models.Track
	err := scanner.Scan(
		&t.ID, &t.Name, &t.AlbumID, &t.AlbumName, &t.DurationMS, &t.Popularity,
		&t.Explicit, &t.Danceability, &t.Energy, &t.Key, &t.Loudness, &t.Mode,
		&t.Speechiness, &t.Acousticness, &t.Instrumentalness, &t.Liveness,
		&t.Valence, &t.Tempo, &t.TimeSignature, &t.PreviewURL,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// attachCredits resolves a track's performer edges in credit order.
func (s *SQLiteStore) attachCredits(ctx context.Context, track *models.Track) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT artist_id, artist_name FROM performed
		WHERE track_id = ?
		ORDER BY position ASC
	`, track.ID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	defer rows.Close()

	track.ArtistIDs = nil
	track.ArtistNames = nil
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
		}
		track.ArtistIDs = append(track.ArtistIDs, id)
		track.ArtistNames = append(track.ArtistNames, name)
	}
	return rows.Err()
}

// Track reads a single track with resolved edges.
func (s *SQLiteStore) Track(ctx context.Context, id string) (*models.Track, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)

	track, err := scanTrack(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: track %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}

	if err := s.attachCredits(ctx, track); err != nil {
		return nil, err
	}
	return track, nil
}

// AllTracks reads every track with resolved edges, most popular first.
func (s *SQLiteStore) AllTracks(ctx context.Context) ([]models.Track, error) {
	return s.queryTracks(ctx, `SELECT `+trackColumns+` FROM tracks ORDER BY popularity DESC`)
}

func (s *SQLiteStore) queryTracks(ctx context.Context, query string, args ...any) ([]models.Track, error) {
	tracks, err := s.queryBareTracks(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	for i := range tracks {
		if err := s.attachCredits(ctx, &tracks[i]); err != nil {
			return nil, err
		}
	}
	return tracks, nil
}

// queryBareTracks reads track rows without resolving performer edges.
func (s *SQLiteStore) queryBareTracks(ctx context.Context, query string, args ...any) ([]models.Track, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	defer rows.Close()

	var tracks []models.Track
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
		}
		tracks = append(tracks, *track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	return tracks, nil
}

// AllArtists reads every artist, most popular first.
func (s *SQLiteStore) AllArtists(ctx context.Context) ([]models.Artist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, genres, popularity, followers, image_url
		FROM artists ORDER BY popularity DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	defer rows.Close()

	var artists []models.Artist
	for rows.Next() {
		var a models.Artist
		var genres string
		if err := rows.Scan(&a.ID, &a.Name, &genres, &a.Popularity, &a.Followers, &a.ImageURL); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
		}
		if err := json.Unmarshal([]byte(genres), &a.Genres); err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
		}
		artists = append(artists, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStorageFailure, err)
	}
	return artists, nil
}

// seedVector is the averaged feature vector of the matched seed tracks.
type seedVector struct {
	valence      float64
	energy       float64
	danceability float64
	tempo        float64
}

// similarityScore is the mean absolute feature distance against the seed
// vector; lower means more similar.
func (v seedVector) similarityScore(t *models.Track) float64 {
	return (math.Abs(t.Valence-v.valence) +
		math.Abs(t.Energy-v.energy) +
		math.Abs(t.Danceability-v.danceability) +
		math.Abs(t.Tempo-v.tempo)/tempoScale) / 4
}

// SimilarTracks scores all non-seed tracks against the averaged seed feature
// vector and returns the closest matches, most similar first. Ties keep the
// store's scan order (stable within one query execution). Scoring runs on
// bare rows; performer edges are resolved only for the returned tracks.
func (s *SQLiteStore) SimilarTracks(ctx context.Context, seedIDs []string, limit int) ([]models.Track, error) {
	if len(seedIDs) == 0 {
		return nil, fmt.Errorf("%w: no seed tracks", shared.ErrBadInput)
	}
	if limit <= 0 {
		limit = 20
	}

	seeds := make(map[string]bool, len(seedIDs))
	for _, id := range seedIDs {
		seeds[id] = true
	}

	all, err := s.queryBareTracks(ctx, `SELECT `+trackColumns+` FROM tracks`)
	if err != nil {
		return nil, err
	}

	var vector seedVector
	matched := 0
	for i := range all {
		if seeds[all[i].ID] {
			vector.valence += all[i].Valence
			vector.energy += all[i].Energy
			vector.danceability += all[i].Danceability
			vector.tempo += all[i].Tempo
			matched++
		}
	}
	if matched == 0 {
		return nil, fmt.Errorf("%w: no seed tracks in graph", shared.ErrNotFound)
	}
	vector.valence /= float64(matched)
	vector.energy /= float64(matched)
	vector.danceability /= float64(matched)
	vector.tempo /= float64(matched)

	type scored struct {
		track models.Track
		score float64
	}

	candidates := make([]scored, 0, len(all))
	for i := range all {
		if seeds[all[i].ID] {
			continue
		}
		candidates = append(candidates, scored{track: all[i], score: vector.similarityScore(&all[i])})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	tracks := make([]models.Track, len(candidates))
	for i, c := range candidates {
		tracks[i] = c.track
		if err := s.attachCredits(ctx, &tracks[i]); err != nil {
			return nil, err
		}
	}
	return tracks, nil
}
