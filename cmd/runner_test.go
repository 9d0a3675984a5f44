package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/songgraph/internal/ratelimit"
	"github.com/desertthunder/songgraph/internal/shared"
	tu "github.com/desertthunder/songgraph/internal/testing"
)

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := &tu.MockCatalogService{}
			video := &tu.MockVideoService{}

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Catalog: catalog,
				Video:   video,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog service to be set")
			}
			if runner.video != video {
				t.Error("expected video service to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output == nil {
				t.Error("expected default output to be set")
			}
		})
	})

	t.Run("register returns all commands", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for _, command := range commands {
			names[command.Name] = true
		}

		for _, expected := range []string{"setup", "serve", "import", "recommend", "export"} {
			if !names[expected] {
				t.Errorf("expected %s command to be registered", expected)
			}
		}
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes compact output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got := output.String(); got != "{\"key\":\"value\"}\n" {
				t.Errorf("unexpected output: %q", got)
			}
		})

		t.Run("writes pretty output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), "  \"key\": \"value\"") {
				t.Errorf("expected indented output, got %q", output.String())
			}
		})

		t.Run("propagates write failures", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writeJSON(map[string]string{}, false); err == nil {
				t.Error("expected write error")
			}
		})
	})

	t.Run("openStore migrates the schema", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(t.TempDir(), "test.db")
		runner := NewRunner(RunnerOpts{Config: config})

		store, db, err := runner.openStore()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer db.Close()

		if _, err := store.AllTracks(context.Background()); err != nil {
			t.Errorf("expected schema to exist, got %v", err)
		}
	})
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.toml")

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output})

	// The embedded template points at songgraph.db in the working directory.
	wd := tu.MustGetwd(t)
	tu.MustChdir(t, dir)
	defer tu.MustChdir(t, wd)

	cmd := setupCommand(runner)
	if err := cmd.Run(context.Background(), []string{"setup", "--config", configPath}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	tu.AssertFileExists(t, configPath)
	tu.AssertFileExists(t, filepath.Join(dir, "songgraph.db"))
}

func TestLimiterConfig(t *testing.T) {
	t.Run("zero overrides keep the preset", func(t *testing.T) {
		preset := ratelimit.SpotifyConfig()
		got := limiterConfig(preset, shared.RateLimitConfig{})

		if got != preset {
			t.Errorf("expected preset unchanged, got %+v", got)
		}
	})

	t.Run("non-zero overrides apply", func(t *testing.T) {
		got := limiterConfig(ratelimit.SpotifyConfig(), shared.RateLimitConfig{
			MaxRequests:   5,
			WindowSeconds: 30,
			MaxRetries:    1,
		})

		if got.MaxRequests != 5 {
			t.Errorf("expected max requests override, got %d", got.MaxRequests)
		}
		if got.Window != 30*time.Second {
			t.Errorf("expected window override, got %s", got.Window)
		}
		if got.MaxRetries != 1 {
			t.Errorf("expected retries override, got %d", got.MaxRetries)
		}
	})
}
