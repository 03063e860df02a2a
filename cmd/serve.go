package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitchradar/radar-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the collections API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		sources := make([]string, 0, len(cfg.Sources.Feeds))
		for _, feed := range cfg.Sources.Feeds {
			sources = append(sources, feed.Name)
		}

		// Ingest triggered over the API runs against the server's lifetime
		// context, not the request's.
		trigger := func(source string) {
			feed, ok := feedByName(source)
			if !ok {
				return
			}
			records, err := env.Ingestor.Fetch(ctx, feed)
			if err != nil {
				zap.L().Error("triggered ingest failed", zap.String("source", source), zap.Error(err))
				return
			}
			if _, err := env.Pipeline.Run(ctx, source, records); err != nil {
				zap.L().Error("triggered pipeline failed", zap.String("source", source), zap.Error(err))
			}
		}

		api := server.New(env.Store, server.WithIngestTrigger(sources, trigger))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Handler(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
