package main

import (
	"context"
	"os"
	"time"

	"github.com/desertthunder/songgraph/internal/ratelimit"
	"github.com/desertthunder/songgraph/internal/services"
	"github.com/desertthunder/songgraph/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	spotifyLimiter := ratelimit.New(limiterConfig(ratelimit.SpotifyConfig(), config.RateLimits.Spotify))
	youtubeLimiter := ratelimit.New(limiterConfig(ratelimit.YouTubeConfig(), config.RateLimits.YouTube))

	catalog := services.NewSpotifyService(
		config.Credentials.Spotify.ClientID,
		config.Credentials.Spotify.ClientSecret,
		spotifyLimiter,
		logger,
	)
	video := services.NewYouTubeService(config.Credentials.YouTube.APIKey, youtubeLimiter, logger)

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Catalog: catalog,
		Video:   video,
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "songgraph",
		Usage:    "Ingest playlists into a song graph and build playlists from it",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

// limiterConfig overlays non-zero config file values onto a provider preset.
func limiterConfig(preset ratelimit.Config, overrides shared.RateLimitConfig) ratelimit.Config {
	if overrides.MaxRequests > 0 {
		preset.MaxRequests = overrides.MaxRequests
	}
	if overrides.WindowSeconds > 0 {
		preset.Window = time.Duration(overrides.WindowSeconds) * time.Second
	}
	if overrides.MaxRetries > 0 {
		preset.MaxRetries = overrides.MaxRetries
	}
	return preset
}
