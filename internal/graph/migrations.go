package graph

import (
	"database/sql"
	"fmt"
)

// schema holds the graph tables and the indexes backing id lookups.
//
// performed carries the credit name and position so a track's performance
// credits survive even when the artist node itself was never fetched.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tracks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		album_id TEXT NOT NULL DEFAULT '',
		album_name TEXT NOT NULL DEFAULT '',
		duration_ms INTEGER NOT NULL DEFAULT 0,
		popularity INTEGER NOT NULL DEFAULT 0,
		explicit INTEGER NOT NULL DEFAULT 0,
		danceability REAL NOT NULL DEFAULT 0,
		energy REAL NOT NULL DEFAULT 0,
		key INTEGER NOT NULL DEFAULT 0,
		loudness REAL NOT NULL DEFAULT 0,
		mode INTEGER NOT NULL DEFAULT 0,
		speechiness REAL NOT NULL DEFAULT 0,
		acousticness REAL NOT NULL DEFAULT 0,
		instrumentalness REAL NOT NULL DEFAULT 0,
		liveness REAL NOT NULL DEFAULT 0,
		valence REAL NOT NULL DEFAULT 0,
		tempo REAL NOT NULL DEFAULT 0,
		time_signature INTEGER NOT NULL DEFAULT 4,
		preview_url TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS artists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		genres TEXT NOT NULL DEFAULT '[]',
		popularity INTEGER NOT NULL DEFAULT 0,
		followers INTEGER NOT NULL DEFAULT 0,
		image_url TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS albums (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS performed (
		artist_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		artist_name TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (artist_id, track_id)
	)`,
	`CREATE TABLE IF NOT EXISTS contains (
		album_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		PRIMARY KEY (album_id, track_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tracks_popularity ON tracks (popularity)`,
	`CREATE INDEX IF NOT EXISTS idx_artists_popularity ON artists (popularity)`,
	`CREATE INDEX IF NOT EXISTS idx_performed_track ON performed (track_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contains_track ON contains (track_id)`,
}

// Migrate creates the graph schema if it does not exist.
func Migrate(db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
