package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/songgraph/internal/server"
	"github.com/urfave/cli/v3"
)

// Serve runs the graph API server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := r.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	host := r.config.Server.Host
	if flagHost := cmd.String("host"); flagHost != "" {
		host = flagHost
	}
	port := r.config.Server.Port
	if flagPort := cmd.Int("port"); flagPort != 0 {
		port = int(flagPort)
	}

	router := server.NewBasicRouter()
	router.Use(
		server.RecoverMiddleware(r.logger),
		server.RequestIDMiddleware(),
		server.LoggingMiddleware(r.logger),
	)
	router.Handler(server.NewAPI(r.engine(store), store, r.catalog, r.video, r.logger))

	addr := fmt.Sprintf("%s:%d", host, port)
	return server.Serve(ctx, addr, router, r.logger)
}
