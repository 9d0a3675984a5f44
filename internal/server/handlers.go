package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/songgraph/internal/graph"
	"github.com/desertthunder/songgraph/internal/models"
	"github.com/desertthunder/songgraph/internal/services"
	"github.com/desertthunder/songgraph/internal/shared"
	"github.com/desertthunder/songgraph/internal/tasks"
)

// API serves the graph service routes: playlist import, stored node listings,
// similarity recommendations, and playlist creation on the video provider.
type API struct {
	engine  tasks.GraphEngine
	store   graph.Store
	catalog services.CatalogService
	video   services.VideoService
	logger  *log.Logger
}

// NewAPI creates the API handler with its dependencies.
func NewAPI(engine tasks.GraphEngine, store graph.Store, catalog services.CatalogService, video services.VideoService, logger *log.Logger) *API {
	if logger == nil {
		logger = log.Default()
	}
	return &API{engine: engine, store: store, catalog: catalog, video: video, logger: logger}
}

// Routes returns the HTTP routes this handler serves.
func (a *API) Routes() []string {
	return []string{
		"/api/health",
		"/api/spotify/import",
		"/api/spotify/artists",
		"/api/spotify/tracks",
		"/api/recommendations",
		"/api/youtube/playlist",
		"/api/youtube/playlist/from-recommendations",
	}
}

// ServeHTTP dispatches to the route handlers.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/health":
		a.handleHealth(w, r)
	case "/api/spotify/import":
		a.handleImport(w, r)
	case "/api/spotify/artists":
		a.handleArtists(w, r)
	case "/api/spotify/tracks":
		a.handleTracks(w, r)
	case "/api/recommendations":
		a.handleRecommendations(w, r)
	case "/api/youtube/playlist":
		a.handleBuildPlaylist(w, r)
	case "/api/youtube/playlist/from-recommendations":
		a.handleBuildFromRecommendations(w, r)
	default:
		a.writeError(w, shared.ErrNotFound)
	}
}

// writeJSON writes a JSON response with the given status code.
func (a *API) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps a sentinel error onto its HTTP status and writes a JSON
// error body.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrBadInput):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, shared.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrUpstreamUnavailable), errors.Is(err, shared.ErrUpstreamMalformed):
		status = http.StatusBadGateway
	case errors.Is(err, shared.ErrStorageFailure):
		status = http.StatusInternalServerError
	}

	message := "not found"
	if err != nil {
		message = err.Error()
	}
	a.writeJSON(w, status, map[string]string{"error": message})
}

func (a *API) requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodGet) {
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type importRequest struct {
	PlaylistURL string `json:"playlist_url"`
	AccessToken string `json:"access_token"`
}

func (a *API) handleImport(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, shared.ErrBadInput)
		return
	}
	if req.PlaylistURL == "" {
		a.writeError(w, shared.ErrBadInput)
		return
	}

	result, err := a.engine.Import(r.Context(), req.PlaylistURL, req.AccessToken, nil)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, result)
}

func (a *API) handleArtists(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodGet) {
		return
	}

	artists, err := a.store.AllArtists(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"artists": artists, "count": len(artists)})
}

func (a *API) handleTracks(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodGet) {
		return
	}

	tracks, err := a.store.AllTracks(r.Context())
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks, "count": len(tracks)})
}

func (a *API) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodGet) {
		return
	}

	seedsParam := r.URL.Query().Get("seed_tracks")
	if seedsParam == "" {
		a.writeError(w, shared.ErrBadInput)
		return
	}
	var seeds []string
	for _, seed := range strings.Split(seedsParam, ",") {
		if seed = strings.TrimSpace(seed); seed != "" {
			seeds = append(seeds, seed)
		}
	}

	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			a.writeError(w, shared.ErrBadInput)
			return
		}
		limit = parsed
	}

	// source=provider asks the catalog provider instead of the local graph.
	if r.URL.Query().Get("source") == "provider" {
		a.handleProviderRecommendations(w, r, seeds, limit)
		return
	}

	tracks, err := a.engine.Recommend(r.Context(), seeds, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks, "count": len(tracks)})
}

// handleProviderRecommendations forwards the seeds and optional target_*
// feature hints to the catalog provider's recommendation endpoint.
func (a *API) handleProviderRecommendations(w http.ResponseWriter, r *http.Request, seeds []string, limit int) {
	query := r.URL.Query()

	var hints models.FeatureHints
	parse := func(name string, target **float64) bool {
		raw := query.Get(name)
		if raw == "" {
			return true
		}
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			a.writeError(w, shared.ErrBadInput)
			return false
		}
		*target = &value
		return true
	}
	if !parse("target_valence", &hints.Valence) ||
		!parse("target_energy", &hints.Energy) ||
		!parse("target_danceability", &hints.Danceability) {
		return
	}

	if err := a.catalog.Authenticate(r.Context(), query.Get("access_token")); err != nil {
		a.writeError(w, err)
		return
	}

	tracks, err := a.catalog.Recommendations(r.Context(), seeds, hints, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks, "count": len(tracks)})
}

type buildPlaylistRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	TrackNames  []string `json:"track_names"`
	AccessToken string   `json:"access_token"`
}

func (a *API) handleBuildPlaylist(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req buildPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, shared.ErrBadInput)
		return
	}
	if req.Name == "" || len(req.TrackNames) == 0 {
		a.writeError(w, shared.ErrBadInput)
		return
	}

	if err := a.video.Authenticate(r.Context(), req.AccessToken); err != nil {
		a.writeError(w, err)
		return
	}

	created, err := a.video.BuildPlaylist(r.Context(), req.Name, req.Description, req.TrackNames)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, created)
}

type buildFromRecommendationsRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SeedTracks  []string `json:"seed_tracks"`
	Limit       int      `json:"limit"`
	AccessToken string   `json:"access_token"`
}

func (a *API) handleBuildFromRecommendations(w http.ResponseWriter, r *http.Request) {
	if !a.requireMethod(w, r, http.MethodPost) {
		return
	}

	var req buildFromRecommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, shared.ErrBadInput)
		return
	}
	if req.Name == "" || len(req.SeedTracks) == 0 {
		a.writeError(w, shared.ErrBadInput)
		return
	}

	if err := a.video.Authenticate(r.Context(), req.AccessToken); err != nil {
		a.writeError(w, err)
		return
	}

	created, err := a.engine.BuildFromRecommendations(r.Context(), req.Name, req.Description, req.SeedTracks, req.Limit, nil)
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, created)
}
