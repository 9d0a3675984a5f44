package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/songgraph/internal/models"
	"github.com/desertthunder/songgraph/internal/ratelimit"
	"github.com/desertthunder/songgraph/internal/shared"
	th "github.com/desertthunder/songgraph/internal/testing"
)

func testLimiter() *ratelimit.Limiter {
	return ratelimit.New(ratelimit.Config{
		MaxRequests:       1000,
		Window:            ratelimit.SpotifyConfig().Window,
		InitialBackoff:    1,
		MaxBackoff:        1,
		BackoffMultiplier: 2.0,
		MaxRetries:        0,
	})
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("Name", func(t *testing.T) {
		svc := NewSpotifyService("id", "secret", testLimiter(), nil)
		if svc.Name() != "Spotify" {
			t.Errorf("expected 'Spotify', got %s", svc.Name())
		}
	})

	t.Run("Authenticate", func(t *testing.T) {
		t.Run("with supplied token", func(t *testing.T) {
			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			if err := svc.Authenticate(ctx, "user_token"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.accessToken != "user_token" {
				t.Errorf("expected token to be stored, got %s", svc.accessToken)
			}
		})

		t.Run("client credentials exchange", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, `{"access_token":"exchanged_token","token_type":"Bearer","expires_in":3600}`)
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.credentials.TokenURL = server.URL

			if err := svc.Authenticate(ctx, ""); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if svc.accessToken != "exchanged_token" {
				t.Errorf("expected exchanged token, got %s", svc.accessToken)
			}
		})

		t.Run("exchange failure is unauthorized", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.credentials.TokenURL = server.URL

			err := svc.Authenticate(ctx, "")
			if !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("missing secrets is unauthorized", func(t *testing.T) {
			svc := NewSpotifyService("", "", testLimiter(), nil)
			if err := svc.Authenticate(ctx, ""); !errors.Is(err, shared.ErrUnauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})

		t.Run("token rotation is safe under concurrent fetches", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") == "Bearer " {
					t.Error("request sent without a token")
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			if err := svc.Authenticate(ctx, "initial_token"); err != nil {
				t.Fatal(err)
			}

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					if i%2 == 0 {
						if err := svc.Authenticate(ctx, fmt.Sprintf("rotated_%d", i)); err != nil {
							t.Errorf("authenticate failed: %v", err)
						}
						return
					}
					if _, err := svc.PlaylistTracks(ctx, "pl1"); err != nil {
						t.Errorf("playlist fetch failed: %v", err)
					}
				}(i)
			}
			wg.Wait()
		})
	})

	t.Run("transport failure propagates", func(t *testing.T) {
		svc := NewSpotifyService("id", "secret", testLimiter(), nil)
		svc.accessToken = "test_token"
		svc.httpClient = &http.Client{Transport: th.NewMockRoundTripper(nil, errors.New("connection reset"))}

		if _, err := svc.Artist(ctx, "a1"); err == nil {
			t.Error("expected error for transport failure")
		}
	})

	t.Run("PlaylistTracks", func(t *testing.T) {
		page := []map[string]any{
			{"track": map[string]any{
				"id":   "t1",
				"name": "Song One",
				"artists": []map[string]any{
					{"id": "a1", "name": "Artist One"},
					{"id": "a2", "name": "Artist Two"},
				},
				"album":       map[string]any{"id": "al1", "name": "Album One"},
				"duration_ms": 200000,
				"popularity":  55,
				"explicit":    true,
				"preview_url": "https://p.example/t1",
			}},
			{"track": map[string]any{
				// missing name, should be skipped
				"id": "t2",
			}},
		}

		newServer := func(t *testing.T, featureStatus int) *httptest.Server {
			return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer test_token" {
					t.Errorf("expected bearer token header, got %q", r.Header.Get("Authorization"))
				}

				w.Header().Set("Content-Type", "application/json")
				switch {
				case strings.HasPrefix(r.URL.Path, "/playlists/pl1/tracks"):
					if r.URL.Query().Get("offset") == "0" {
						json.NewEncoder(w).Encode(map[string]any{"items": page})
					} else {
						json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
					}
				case strings.HasPrefix(r.URL.Path, "/audio-features/"):
					if featureStatus != http.StatusOK {
						w.WriteHeader(featureStatus)
						return
					}
					json.NewEncoder(w).Encode(map[string]any{
						"danceability": 0.8,
						"energy":       0.6,
						"valence":      0.4,
						"tempo":        121.5,
						"key":          5,
						"mode":         1,
					})
				default:
					t.Errorf("unexpected path %s", r.URL.Path)
					w.WriteHeader(http.StatusNotFound)
				}
			}))
		}

		t.Run("parses tracks and features", func(t *testing.T) {
			server := newServer(t, http.StatusOK)
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			tracks, err := svc.PlaylistTracks(ctx, "pl1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if len(tracks) != 1 {
				t.Fatalf("expected 1 parsable track, got %d", len(tracks))
			}

			track := tracks[0]
			if track.ID != "t1" || track.Name != "Song One" {
				t.Errorf("unexpected track identity: %+v", track)
			}
			if len(track.ArtistIDs) != 2 || track.ArtistIDs[0] != "a1" {
				t.Errorf("expected ordered artist credits, got %v", track.ArtistIDs)
			}
			if track.AlbumID != "al1" {
				t.Errorf("expected album edge data, got %s", track.AlbumID)
			}
			if track.Danceability != 0.8 || track.Tempo != 121.5 {
				t.Errorf("expected audio features attached, got %+v", track.AudioFeatures)
			}
		})

		t.Run("audio feature failure degrades to zero", func(t *testing.T) {
			server := newServer(t, http.StatusForbidden)
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			tracks, err := svc.PlaylistTracks(ctx, "pl1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 {
				t.Fatalf("expected 1 track, got %d", len(tracks))
			}
			if tracks[0].Danceability != 0 || tracks[0].Tempo != 0 {
				t.Errorf("expected zero-valued features, got %+v", tracks[0].AudioFeatures)
			}
		})

		t.Run("terminates on first empty page", func(t *testing.T) {
			pages := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				pages++
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			tracks, err := svc.PlaylistTracks(ctx, "empty")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 0 {
				t.Errorf("expected no tracks, got %d", len(tracks))
			}
			if pages != 1 {
				t.Errorf("expected exactly one page fetch, got %d", pages)
			}
		})

		t.Run("page failure aborts the playlist", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			if _, err := svc.PlaylistTracks(ctx, "pl1"); !errors.Is(err, shared.ErrUpstreamUnavailable) {
				t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
			}
		})
	})

	t.Run("Artist", func(t *testing.T) {
		t.Run("parses artist", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/artists/a1" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"id":         "a1",
					"name":       "Artist One",
					"genres":     []string{"indie", "rock"},
					"popularity": 70,
					"followers":  map[string]any{"total": 12345},
					"images":     []map[string]any{{"url": "https://img.example/a1"}},
				})
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			artist, err := svc.Artist(ctx, "a1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if artist.Name != "Artist One" || artist.Followers != 12345 {
				t.Errorf("unexpected artist: %+v", artist)
			}
			if artist.ImageURL != "https://img.example/a1" {
				t.Errorf("expected first image url, got %s", artist.ImageURL)
			}
		})

		t.Run("fails loudly on provider error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			if _, err := svc.Artist(ctx, "missing"); err == nil {
				t.Error("expected error for provider failure")
			}
		})

		t.Run("missing name is malformed", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{"id": "a1"})
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			if _, err := svc.Artist(ctx, "a1"); !errors.Is(err, shared.ErrUpstreamMalformed) {
				t.Errorf("expected ErrUpstreamMalformed, got %v", err)
			}
		})
	})

	t.Run("Recommendations", func(t *testing.T) {
		t.Run("appends feature hints", func(t *testing.T) {
			var query string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.RawQuery
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(map[string]any{
					"tracks": []map[string]any{
						{"id": "r1", "name": "Rec One"},
					},
				})
			}))
			defer server.Close()

			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.baseURL = server.URL
			svc.accessToken = "test_token"

			valence := 0.7
			tracks, err := svc.Recommendations(ctx, []string{"t1", "t2"}, models.FeatureHints{Valence: &valence}, 10)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(tracks) != 1 || tracks[0].ID != "r1" {
				t.Errorf("unexpected recommendations: %+v", tracks)
			}
			if !strings.Contains(query, "target_valence=0.7") {
				t.Errorf("expected valence hint in query, got %s", query)
			}
			if !strings.Contains(query, "seed_tracks=t1%2Ct2") {
				t.Errorf("expected seed tracks in query, got %s", query)
			}
		})

		t.Run("requires seeds", func(t *testing.T) {
			svc := NewSpotifyService("id", "secret", testLimiter(), nil)
			svc.accessToken = "test_token"
			if _, err := svc.Recommendations(ctx, nil, models.FeatureHints{}, 10); !errors.Is(err, shared.ErrBadInput) {
				t.Errorf("expected ErrBadInput, got %v", err)
			}
		})
	})
}
