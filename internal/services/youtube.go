// YouTube Data API implementation of [VideoService]
//
// Search uses an API key; playlist create/add use an externally supplied
// bearer token. https://developers.google.com/youtube/v3/docs
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songgraph/internal/models"
	"github.com/desertthunder/songgraph/internal/ratelimit"
	"github.com/desertthunder/songgraph/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultYTBaseURL = "https://www.googleapis.com/youtube/v3"

	// buildBatchSize groups search-then-add work into small batches.
	buildBatchSize = 10
	// interBatchPause supplements the rate limiter between batches.
	interBatchPause = 500 * time.Millisecond
)

type youtubeSearchID struct {
	VideoID string `json:"videoId"`
}

type youtubeSnippet struct {
	Title        string `json:"title"`
	ChannelTitle string `json:"channelTitle"`
}

type youtubeSearchItem struct {
	ID      youtubeSearchID `json:"id"`
	Snippet youtubeSnippet  `json:"snippet"`
}

type youtubeSearchResponse struct {
	Items []youtubeSearchItem `json:"items"`
}

type youtubeCreatedPlaylist struct {
	ID string `json:"id"`
}

// YouTubeService implements [VideoService] against the YouTube Data API.
//
// Search-then-add traffic runs through the service's rate limiter, with an
// additional token bucket pacing playlist builds.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	logger     *log.Logger
	apiKey     string
	pacer      *rate.Limiter

	// mu guards accessToken: Authenticate may run concurrently with
	// in-flight requests when the service is shared across handlers.
	mu          sync.RWMutex
	accessToken string
}

// NewYouTubeService creates a YouTube video client with the given API key.
func NewYouTubeService(apiKey string, limiter *ratelimit.Limiter, logger *log.Logger) *YouTubeService {
	if limiter == nil {
		limiter = ratelimit.New(ratelimit.YouTubeConfig())
	}

	return &YouTubeService{
		baseURL:    defaultYTBaseURL,
		httpClient: http.DefaultClient,
		limiter:    limiter,
		logger:     logger,
		apiKey:     apiKey,
		pacer:      rate.NewLimiter(rate.Limit(5), 1),
	}
}

// Name returns the provider name.
func (y *YouTubeService) Name() string {
	return "YouTube"
}

// Authenticate stores the bearer token used for playlist mutations.
func (y *YouTubeService) Authenticate(_ context.Context, accessToken string) error {
	if accessToken == "" {
		return fmt.Errorf("%w: missing access token", shared.ErrUnauthorized)
	}
	y.mu.Lock()
	y.accessToken = accessToken
	y.mu.Unlock()
	return nil
}

// token snapshots the current access token; requests already in flight keep
// the token they started with when Authenticate rotates it.
func (y *YouTubeService) token() string {
	y.mu.RLock()
	defer y.mu.RUnlock()
	return y.accessToken
}

// doJSON performs a request against the YouTube API and decodes the response
// into result. A bearer token is attached when withAuth is set.
func (y *YouTubeService) doJSON(ctx context.Context, method, endpoint string, body, result any, withAuth bool) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, y.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if withAuth {
		token := y.token()
		if token == "" {
			return fmt.Errorf("%w: call Authenticate first", shared.ErrUnauthorized)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: youtube API status %d", shared.ErrUpstreamUnavailable, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrUpstreamMalformed, err)
		}
	}

	return nil
}

// SearchVideo returns the best match for a query, or nil when the provider
// returns no results. An empty result set is not an error.
func (y *YouTubeService) SearchVideo(ctx context.Context, query string) (*models.Video, error) {
	endpoint := fmt.Sprintf("/search?part=snippet&type=video&maxResults=1&q=%s&key=%s",
		url.QueryEscape(query), url.QueryEscape(y.apiKey))

	result, err := ratelimit.Do(ctx, y.limiter, func(ctx context.Context) (youtubeSearchResponse, error) {
		var r youtubeSearchResponse
		err := y.doJSON(ctx, http.MethodGet, endpoint, nil, &r, false)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("video search failed: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, nil
	}

	item := result.Items[0]
	if item.ID.VideoID == "" {
		return nil, fmt.Errorf("%w: search item missing video id", shared.ErrUpstreamMalformed)
	}

	return &models.Video{
		ID:           item.ID.VideoID,
		Title:        item.Snippet.Title,
		ChannelTitle: item.Snippet.ChannelTitle,
	}, nil
}

// CreatePlaylist creates an empty public playlist and returns its id.
func (y *YouTubeService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if description == "" {
		description = "Created by songgraph"
	}

	payload := map[string]any{
		"snippet": map[string]any{
			"title":       name,
			"description": description,
		},
		"status": map[string]any{
			"privacyStatus": "public",
		},
	}

	created, err := ratelimit.Do(ctx, y.limiter, func(ctx context.Context) (youtubeCreatedPlaylist, error) {
		var c youtubeCreatedPlaylist
		err := y.doJSON(ctx, http.MethodPost, "/playlists?part=snippet,status", payload, &c, true)
		return c, err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create playlist: %w", err)
	}

	if created.ID == "" {
		return "", fmt.Errorf("%w: created playlist missing id", shared.ErrUpstreamMalformed)
	}

	return created.ID, nil
}

// AddVideo appends a video to a playlist.
func (y *YouTubeService) AddVideo(ctx context.Context, playlistID, videoID string) error {
	payload := map[string]any{
		"snippet": map[string]any{
			"playlistId": playlistID,
			"resourceId": map[string]any{
				"kind":    "youtube#video",
				"videoId": videoID,
			},
		},
	}

	err := y.limiter.Execute(ctx, func(ctx context.Context) error {
		return y.doJSON(ctx, http.MethodPost, "/playlistItems?part=snippet", payload, nil, true)
	})
	if err != nil {
		return fmt.Errorf("failed to add video to playlist: %w", err)
	}

	return nil
}

// BuildPlaylist creates a playlist and populates it by searching each query
// and adding the best match.
//
// Queries are processed in batches with a short pause between batches. A
// query whose search or add fails is recorded in TracksNotFound and never
// aborts the build; not-found and add-failed are logged with distinct
// reasons.
func (y *YouTubeService) BuildPlaylist(ctx context.Context, name, description string, queries []string) (*models.CreatedPlaylist, error) {
	playlistID, err := y.CreatePlaylist(ctx, name, description)
	if err != nil {
		return nil, err
	}

	added := 0
	var notFound []string

	for start := 0; start < len(queries); start += buildBatchSize {
		end := start + buildBatchSize
		if end > len(queries) {
			end = len(queries)
		}

		for _, query := range queries[start:end] {
			if err := y.pacer.Wait(ctx); err != nil {
				return nil, err
			}

			video, err := y.SearchVideo(ctx, query)
			switch {
			case err != nil:
				if y.logger != nil {
					y.logger.Warn("video search failed", "query", query, "err", err)
				}
				notFound = append(notFound, query)
			case video == nil:
				if y.logger != nil {
					y.logger.Warn("no video found", "query", query)
				}
				notFound = append(notFound, query)
			default:
				if err := y.AddVideo(ctx, playlistID, video.ID); err != nil {
					if y.logger != nil {
						y.logger.Warn("failed to add video", "query", query, "video", video.ID, "err", err)
					}
					notFound = append(notFound, query)
				} else {
					added++
				}
			}
		}

		if end < len(queries) {
			timer := time.NewTimer(interBatchPause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return &models.CreatedPlaylist{
		ID:             playlistID,
		Name:           name,
		URL:            "https://www.youtube.com/playlist?list=" + playlistID,
		TracksAdded:    added,
		TracksNotFound: notFound,
	}, nil
}

// FormatSearchQuery builds a video search query from a track name and its
// performing artists.
func FormatSearchQuery(trackName string, artistNames []string) string {
	if len(artistNames) == 0 {
		return trackName
	}
	return strings.Join(artistNames, " ") + " " + trackName
}
