package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-screencapture/config"
	"github.com/porticus-lab/go-screencapture/sink"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		dir      string
		redisURL string
		token    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload receiver",
		Long: `Serve runs the HTTP receiver for DB_DOWNLOAD captures. Uploads are
reassembled from their base64 chunks and stored in a directory, or in Redis
when --redis is set.

Routes:
  GET    /health
  POST   /captures
  GET    /captures
  GET    /captures/{id}
  GET    /captures/{id}/meta
  DELETE /captures/{id}`,
		Example: `  screencapture serve --addr :8095 --dir ./captures
  screencapture serve --redis redis://localhost:6379/0 --token s3cret`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			s := &cfg.Settings.Sink
			f := cmd.Flags()
			if f.Changed("addr") {
				s.Addr = addr
			}
			if f.Changed("dir") {
				s.Dir = dir
			}
			if f.Changed("redis") {
				s.RedisURL = redisURL
			}
			if f.Changed("token") {
				s.Token = token
			}
			return runServe(cmd, *s)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from settings, :8095)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for stored captures")
	cmd.Flags().StringVar(&redisURL, "redis", "", "store captures in Redis at this URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token required on /captures")
	return cmd
}

func openStore(ctx context.Context, s config.Sink) (sink.Store, error) {
	if s.RedisURL != "" {
		return sink.NewRedisStore(ctx, sink.RedisConfig{URL: s.RedisURL})
	}
	return sink.NewFileStore(s.Dir)
}

func runServe(cmd *cobra.Command, s config.Sink) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx).WithPrefix("sink")

	store, err := openStore(ctx, s)
	if err != nil {
		return err
	}
	defer store.Close()

	srv := &http.Server{
		Addr: s.Addr,
		Handler: sink.NewServer(store, sink.Options{
			Token:        s.Token,
			MaxBodyBytes: s.MaxBodyBytes,
			Logger:       logger,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stop := context.AfterFunc(ctx, func() {
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	})
	defer stop()

	backend := "dir " + s.Dir
	if s.RedisURL != "" {
		backend = "redis"
	}
	logger.Info("starting receiver", "addr", s.Addr, "store", backend, "auth", s.Token != "")
	printInfo(cmd.OutOrStdout(), "listening on %s", StyleValue.Render(s.Addr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
