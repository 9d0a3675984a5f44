// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/songgraph/internal/models"
)

// MockCatalogService is a test double for [services.CatalogService]
type MockCatalogService struct{}

func (m *MockCatalogService) Authenticate(ctx context.Context, accessToken string) error {
	return nil
}

func (m *MockCatalogService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	return []models.Track{}, nil
}

func (m *MockCatalogService) Artist(ctx context.Context, artistID string) (*models.Artist, error) {
	return nil, nil
}

func (m *MockCatalogService) Recommendations(ctx context.Context, seedIDs []string, hints models.FeatureHints, limit int) ([]models.Track, error) {
	return nil, nil
}

func (m *MockCatalogService) Name() string { return "mock-catalog" }

// MockVideoService is a test double for [services.VideoService]
type MockVideoService struct{}

func (m *MockVideoService) Authenticate(ctx context.Context, accessToken string) error {
	return nil
}

func (m *MockVideoService) SearchVideo(ctx context.Context, query string) (*models.Video, error) {
	return nil, nil
}

func (m *MockVideoService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	return "", nil
}

func (m *MockVideoService) AddVideo(ctx context.Context, playlistID, videoID string) error {
	return nil
}

func (m *MockVideoService) BuildPlaylist(ctx context.Context, name, description string, queries []string) (*models.CreatedPlaylist, error) {
	return nil, nil
}

func (m *MockVideoService) Name() string { return "mock-video" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
