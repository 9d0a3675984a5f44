package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songgraph/internal/server"
	"github.com/desertthunder/songgraph/internal/shared"
	"github.com/desertthunder/songgraph/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// youtubeScope grants playlist creation on the user's account.
const youtubeScope = "https://www.googleapis.com/auth/youtube"

// Export builds a playlist on the video provider from graph recommendations.
//
// A user token may be supplied with --token; otherwise the browser OAuth flow
// runs against the configured client.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	token := cmd.String("token")
	if token == "" {
		var err error
		if token, err = r.authorizeYouTube(ctx); err != nil {
			return err
		}
	}

	if err := r.video.Authenticate(ctx, token); err != nil {
		return err
	}

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	created, err := r.engine(store).BuildFromRecommendations(
		ctx,
		cmd.String("name"),
		cmd.String("description"),
		cmd.StringSlice("seeds"),
		int(cmd.Int("limit")),
		progressCh,
	)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Playlist Created!")
	r.writePlain("Name: %s\n", created.Name)
	r.writePlain("URL: %s\n", created.URL)
	r.writePlain("Tracks added: %d\n", created.TracksAdded)
	if len(created.TracksNotFound) > 0 {
		r.writePlain("\nNo match found for %d tracks:\n", len(created.TracksNotFound))
		for _, query := range created.TracksNotFound {
			r.writePlain("  - %s\n", query)
		}
	}
	return nil
}

// authorizeYouTube runs the authorization code flow on a temporary local
// server and returns the user's access token.
func (r *Runner) authorizeYouTube(ctx context.Context) (string, error) {
	creds := r.config.Credentials.YouTube
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return "", fmt.Errorf("%w: youtube oauth client not configured and no --token supplied", shared.ErrUnauthorized)
	}

	redirectURI := creds.RedirectURI
	if redirectURI == "" {
		redirectURI = fmt.Sprintf("http://localhost:%d/callback", r.config.Server.Port)
	}

	oauthConfig := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{youtubeScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(oauthConfig, state)

	router := server.NewBasicRouter()
	router.Handler(handler)

	serverCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
		errs <- server.Serve(serverCtx, addr, router, r.logger)
	}()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline)
	r.writePlain("Open the following URL in your browser to authorize:\n\n  %s\n\n", authURL)

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return "", fmt.Errorf("%w: %v", shared.ErrUnauthorized, result.Error())
		}
		return result.Token.AccessToken, nil
	case err := <-errs:
		return "", fmt.Errorf("callback server stopped: %w", err)
	case <-time.After(5 * time.Minute):
		return "", fmt.Errorf("%w: authorization timed out", shared.ErrUnauthorized)
	}
}
