// package models defines the data model for the playlist graph service
package models

import "time"

// AudioFeatures holds the numeric descriptors Spotify attaches to a track.
//
// Scalars default to 0.0 when the provider has no analysis for a track; this
// is expected and not an error condition.
type AudioFeatures struct {
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Key              int     `json:"key"`
	Loudness         float64 `json:"loudness"`
	Mode             int     `json:"mode"`
	Speechiness      float64 `json:"speechiness"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	TimeSignature    int     `json:"time_signature"`
}

// Track represents an imported track with its performance credits and audio features.
//
// ArtistIDs and ArtistNames are parallel slices in performance credit order.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ArtistIDs   []string `json:"artist_ids"`
	ArtistNames []string `json:"artist_names"`
	AlbumID     string   `json:"album_id"`
	AlbumName   string   `json:"album_name"`
	DurationMS  int      `json:"duration_ms"`
	Popularity  int      `json:"popularity"`
	Explicit    bool     `json:"explicit"`
	AudioFeatures
	PreviewURL string `json:"preview_url,omitempty"`
}

// Artist represents an imported artist.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres"`
	Popularity int      `json:"popularity"`
	Followers  int      `json:"followers"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// Video represents a matched video on the video provider.
type Video struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelTitle string `json:"channel_title"`
}

// CreatedPlaylist summarizes a playlist built on the video provider.
//
// TracksNotFound lists the search queries that could not be satisfied, either
// because no video matched or the add call failed.
type CreatedPlaylist struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	URL            string   `json:"url"`
	TracksAdded    int      `json:"tracks_added"`
	TracksNotFound []string `json:"tracks_not_found"`
}

// ImportResult reports aggregate counts for a completed playlist import.
//
// Counters report the number of entities processed in this run, not the delta
// against what was already stored.
type ImportResult struct {
	PlaylistID      string        `json:"playlist_id"`
	TracksImported  int           `json:"tracks_imported"`
	ArtistsImported int           `json:"artists_imported"`
	Duration        time.Duration `json:"duration"`
}

// FeatureHints carries optional target constraints for provider recommendations.
type FeatureHints struct {
	Valence      *float64 `json:"target_valence,omitempty"`
	Energy       *float64 `json:"target_energy,omitempty"`
	Danceability *float64 `json:"target_danceability,omitempty"`
}
