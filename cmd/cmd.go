// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and database schema.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize configuration and database schema",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// serveCommand runs the HTTP API.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the graph API server",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to bind (overrides config)",
			},
		},
		Action: r.Serve,
	}
}

// importCommand ingests a playlist into the graph.
func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import a playlist into the song graph",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "playlist",
			},
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "token",
				Usage: "Access token (skips the client credentials exchange)",
			},
		},
		Action: r.Import,
	}
}

// recommendCommand scores stored tracks against seed tracks.
func recommendCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "recommend",
		Usage: "List stored tracks most similar to the seed tracks",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "seeds",
				Usage:    "Seed track IDs",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to return",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the track list to a file instead of stdout",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "File format for --output (csv, markdown, text)",
				Value: "text",
			},
		},
		Action: r.Recommend,
	}
}

// exportCommand builds a playlist on the video provider from recommendations.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Create a playlist on YouTube from graph recommendations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Name of the playlist to create",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Playlist description",
			},
			&cli.StringSliceFlag{
				Name:     "seeds",
				Usage:    "Seed track IDs",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of tracks to add",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "token",
				Usage: "YouTube user access token (skips the browser OAuth flow)",
			},
		},
		Action: r.Export,
	}
}
