// Spotify API implementation of [CatalogService]
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songgraph/internal/models"
	"github.com/desertthunder/songgraph/internal/ratelimit"
	"github.com/desertthunder/songgraph/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// playlistPageSize is the fixed page size for playlist track pagination.
	playlistPageSize = 50
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type spotifyAlbumRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a track object in playlist and recommendation responses.
type SpotifyTrack struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Artists    []spotifyArtistRef `json:"artists"`
	Album      spotifyAlbumRef    `json:"album"`
	DurationMS int                `json:"duration_ms"`
	Popularity int                `json:"popularity"`
	Explicit   bool               `json:"explicit"`
	PreviewURL string             `json:"preview_url"`
}

// SpotifyArtist represents a full artist object.
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Genres     []string       `json:"genres"`
	Popularity int            `json:"popularity"`
	Followers  followers      `json:"followers"`
	Images     []SpotifyImage `json:"images"`
}

// SpotifyAudioFeatures represents the audio analysis scalars for one track.
type SpotifyAudioFeatures struct {
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

type spotifyPlaylistItem struct {
	Track *SpotifyTrack `json:"track"`
}

type spotifyPlaylistPage struct {
	Items []spotifyPlaylistItem `json:"items"`
}

type spotifyRecommendations struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// SpotifyService implements [CatalogService] against the Spotify Web API.
//
// All requests flow through the service's rate limiter; audio feature
// lookups degrade to zero-valued features instead of failing a track.
type SpotifyService struct {
	baseURL     string
	httpClient  *http.Client
	limiter     *ratelimit.Limiter
	logger      *log.Logger
	credentials *clientcredentials.Config

	// mu guards accessToken: Authenticate may run concurrently with
	// in-flight requests when the service is shared across handlers.
	mu          sync.RWMutex
	accessToken string
}

// NewSpotifyService creates a Spotify catalog client.
//
// clientID and clientSecret drive the client credentials exchange when no
// access token is supplied to Authenticate.
func NewSpotifyService(clientID, clientSecret string, limiter *ratelimit.Limiter, logger *log.Logger) *SpotifyService {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.SpotifyConfig())
	}

	return &SpotifyService{
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
		limiter:    limiter,
		logger:     logger,
		credentials: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyTokenURL,
		},
	}
}

// Name returns the provider name.
func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate stores the supplied bearer token, or performs the client
// credentials exchange when accessToken is empty.
func (s *SpotifyService) Authenticate(ctx context.Context, accessToken string) error {
	if accessToken != "" {
		s.setToken(accessToken)
		return nil
	}

	if s.credentials.ClientID == "" || s.credentials.ClientSecret == "" {
		return fmt.Errorf("%w: missing client_id or client_secret", shared.ErrUnauthorized)
	}

	token, err := s.credentials.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: credential exchange failed: %v", shared.ErrUnauthorized, err)
	}

	s.setToken(token.AccessToken)
	if s.logger != nil {
		s.logger.Debug("obtained spotify access token", "expiry", token.Expiry)
	}
	return nil
}

func (s *SpotifyService) setToken(token string) {
	s.mu.Lock()
	s.accessToken = token
	s.mu.Unlock()
}

// token snapshots the current access token; requests already in flight keep
// the token they started with when Authenticate rotates it.
func (s *SpotifyService) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// getJSON performs an authenticated GET against the Spotify API and decodes
// the response body into result.
func (s *SpotifyService) getJSON(ctx context.Context, endpoint string, result any) error {
	token := s.token()
	if token == "" {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API status %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrUpstreamMalformed, err)
		}
	}

	return nil
}

// PlaylistTracks fetches every track on a playlist with audio features attached.
//
// Pages of 50 items are fetched until a page returns zero items. Items that
// fail to parse are logged and skipped; a failed page fetch aborts the whole
// playlist.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	offset := 0
	page := 0

	for {
		page++
		endpoint := fmt.Sprintf("/playlists/%s/tracks?offset=%d&limit=%d", playlistID, offset, playlistPageSize)

		result, err := ratelimit.Do(ctx, s.limiter, func(ctx context.Context) (spotifyPlaylistPage, error) {
			var p spotifyPlaylistPage
			err := s.getJSON(ctx, endpoint, &p)
			return p, err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch playlist page %d: %w", page, err)
		}

		if len(result.Items) == 0 {
			break
		}

		if s.logger != nil {
			s.logger.Debug("fetched playlist page", "page", page, "items", len(result.Items))
		}

		for _, item := range result.Items {
			if item.Track == nil || item.Track.ID == "" || item.Track.Name == "" {
				if s.logger != nil {
					s.logger.Warn("skipping unparsable playlist item", "page", page)
				}
				continue
			}

			track := s.buildTrack(*item.Track)
			track.AudioFeatures = s.audioFeatures(ctx, item.Track.ID)
			tracks = append(tracks, track)
		}

		offset += playlistPageSize
	}

	if s.logger != nil {
		s.logger.Info("playlist fetch complete", "playlist", playlistID, "tracks", len(tracks), "pages", page)
	}
	return tracks, nil
}

// buildTrack maps a Spotify track object onto the domain model, without features.
func (s *SpotifyService) buildTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:         st.ID,
		Name:       st.Name,
		AlbumID:    st.Album.ID,
		AlbumName:  st.Album.Name,
		DurationMS: st.DurationMS,
		Popularity: st.Popularity,
		Explicit:   st.Explicit,
		PreviewURL: st.PreviewURL,
	}

	for _, artist := range st.Artists {
		if artist.ID == "" {
			continue
		}
		track.ArtistIDs = append(track.ArtistIDs, artist.ID)
		track.ArtistNames = append(track.ArtistNames, artist.Name)
	}

	return track
}

// audioFeatures fetches a track's audio features, degrading to zero values on
// any failure. A missing analysis is not an error condition.
func (s *SpotifyService) audioFeatures(ctx context.Context, trackID string) models.AudioFeatures {
	endpoint := "/audio-features/" + trackID

	features, err := ratelimit.Do(ctx, s.limiter, func(ctx context.Context) (SpotifyAudioFeatures, error) {
		var f SpotifyAudioFeatures
		err := s.getJSON(ctx, endpoint, &f)
		return f, err
	})
	if err != nil {
		if s.logger != nil {
			s.logger.Debug("audio features unavailable, defaulting to zero", "track", trackID, "err", err)
		}
		return models.AudioFeatures{}
	}

	return models.AudioFeatures{
		Danceability:     features.Danceability,
		Energy:           features.Energy,
		Key:              features.Key,
		Loudness:         features.Loudness,
		Mode:             features.Mode,
		Speechiness:      features.Speechiness,
		Acousticness:     features.Acousticness,
		Instrumentalness: features.Instrumentalness,
		Liveness:         features.Liveness,
		Valence:          features.Valence,
		Tempo:            features.Tempo,
		TimeSignature:    features.TimeSignature,
	}
}

// Artist fetches a single artist by id. Artist identity and name are
// mandatory; a response missing either is malformed.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	endpoint := "/artists/" + artistID

	sa, err := ratelimit.Do(ctx, s.limiter, func(ctx context.Context) (SpotifyArtist, error) {
		var a SpotifyArtist
		err := s.getJSON(ctx, endpoint, &a)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artist %s: %w", artistID, err)
	}

	if sa.ID == "" || sa.Name == "" {
		return nil, fmt.Errorf("%w: artist missing id or name", shared.ErrUpstreamMalformed)
	}

	artist := &models.Artist{
		ID:         sa.ID,
		Name:       sa.Name,
		Genres:     sa.Genres,
		Popularity: sa.Popularity,
		Followers:  sa.Followers.Total,
	}
	if len(sa.Images) > 0 {
		artist.ImageURL = sa.Images[0].URL
	}

	return artist, nil
}

// Recommendations fetches provider recommendations for the seed tracks.
//
// Feature hints are appended as target_* query constraints when present.
func (s *SpotifyService) Recommendations(ctx context.Context, seedIDs []string, hints models.FeatureHints, limit int) ([]models.Track, error) {
	if len(seedIDs) == 0 {
		return nil, fmt.Errorf("%w: no seed tracks", shared.ErrBadInput)
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("seed_tracks", strings.Join(seedIDs, ","))
	params.Set("limit", strconv.Itoa(limit))
	if hints.Valence != nil {
		params.Set("target_valence", strconv.FormatFloat(*hints.Valence, 'f', -1, 64))
	}
	if hints.Energy != nil {
		params.Set("target_energy", strconv.FormatFloat(*hints.Energy, 'f', -1, 64))
	}
	if hints.Danceability != nil {
		params.Set("target_danceability", strconv.FormatFloat(*hints.Danceability, 'f', -1, 64))
	}

	endpoint := "/recommendations?" + params.Encode()

	result, err := ratelimit.Do(ctx, s.limiter, func(ctx context.Context) (spotifyRecommendations, error) {
		var r spotifyRecommendations
		err := s.getJSON(ctx, endpoint, &r)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recommendations: %w", err)
	}

	tracks := make([]models.Track, 0, len(result.Tracks))
	for _, st := range result.Tracks {
		if st.ID == "" {
			continue
		}
		tracks = append(tracks, s.buildTrack(st))
	}

	return tracks, nil
}
