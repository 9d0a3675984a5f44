package main

import (
	"context"
	"time"

	"github.com/desertthunder/songgraph/internal/shared"
	"github.com/desertthunder/songgraph/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Import ingests a playlist into the song graph.
func (r *Runner) Import(ctx context.Context, cmd *cli.Command) error {
	playlistRef := cmd.StringArg("playlist")
	if playlistRef == "" {
		return shared.ErrBadInput
	}

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	r.writePlain("Importing playlist...\n")

	progressCh := make(chan tasks.ProgressUpdate, 50)
	go func() {
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.StoreTracks:
				r.writePlain("   %s\n", update.Message)
			case tasks.FetchArtists:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	result, err := r.engine(store).Import(ctx, playlistRef, cmd.String("token"), progressCh)
	close(progressCh)

	if err != nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Import Complete!")
	r.writePlain("Playlist: %s\n", result.PlaylistID)
	r.writePlain("Tracks imported: %d\n", result.TracksImported)
	r.writePlain("Artists imported: %d\n", result.ArtistsImported)
	r.writePlain("Duration: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}
