package main

import (
	"context"
	"strings"

	"github.com/desertthunder/songgraph/internal/formatter"
	"github.com/urfave/cli/v3"
)

// Recommend lists the stored tracks most similar to the seed tracks.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	seeds := cmd.StringSlice("seeds")
	limit := int(cmd.Int("limit"))

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tracks, err := r.engine(store).Recommend(ctx, seeds, limit)
	if err != nil {
		return err
	}

	if outputPath := cmd.String("output"); outputPath != "" {
		written, err := formatter.WriteTracks(tracks, "Recommendations", outputPath, cmd.String("format"))
		if err != nil {
			return err
		}
		r.writePlain("Wrote %d tracks to %s\n", len(tracks), written)
		return nil
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	r.writePlainHeader("Recommendations")
	if len(tracks) == 0 {
		r.writePlain("No similar tracks stored yet.\n")
		return nil
	}

	for i, track := range tracks {
		r.writePlain("%2d. %s - %s\n", i+1, strings.Join(track.ArtistNames, ", "), track.Name)
	}
	return nil
}
