package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"timemachine/internal/buffer"
	"timemachine/internal/catalog"
	"timemachine/internal/config"
	"timemachine/internal/events"
	"timemachine/internal/logging"
	"timemachine/internal/playback"
	"timemachine/internal/server"
	"timemachine/pkg/deps"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the playback service",
	Long: `Start the HTTP control API, the Unix socket sample stream and the
metrics endpoint. Runs until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func dbConfig(c *config.Config) catalog.DBConfig {
	return catalog.DBConfig{
		Driver:   c.Database.Driver,
		DSN:      c.Database.DSN,
		Host:     c.Database.Host,
		Port:     c.Database.Port,
		User:     c.Database.User,
		Password: c.Database.Password,
		Name:     c.Database.Name,
	}
}

func playbackOptions(c *config.Config, sink playback.Sink) playback.Options {
	return playback.Options{
		Pacing: buffer.Config{
			ChunkSize: c.Playback.ChunkSize,
			Interval:  c.Playback.TickInterval,
			Realtime:  c.Playback.Pacing == config.PacingRealtime,
		},
		DefaultSampleRate: c.Playback.DefaultSampleRate,
		DefaultMode:       c.Playback.DefaultMode,
		Root:              c.Playback.RecordingsDir,
		Fs:                afero.NewOsFs(),
		Sink:              sink,
		Log:               log,
	}
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := deps.NewChecker(afero.NewOsFs(), cfg.Playback.RecordingsDir, filepath.Dir(cfg.Server.SocketPath))
	if err := checker.CheckAndLog(logging.Component(log, "preflight")); err != nil {
		return err
	}

	db, err := catalog.Open(dbConfig(cfg))
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	store := catalog.NewStore(db)

	hub := events.NewHub()
	ctrl := playback.NewController(store, playbackOptions(cfg, hub))
	defer ctrl.Stop()

	playback.RegisterMetrics(prometheus.DefaultRegisterer)
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		log.Info().Str("addr", cfg.Server.MetricsAddr).Msg("metrics exposed")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Err(err).Msg("metrics server error")
		}
	}()

	gin.SetMode(gin.ReleaseMode)
	api := server.NewAPI(ctrl, store, hub, log)
	httpSrv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: server.SetupRouter(api, cfg.Server.CORSOrigins),
		// Cancels open event streams on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
	httpErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http api listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	socketSrv := server.NewSocketServer(cfg.Server.SocketPath, hub, log)
	if err := socketSrv.Start(ctx); err != nil {
		return err
	}
	defer socketSrv.Stop()

	log.Info().Msg("ready")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-httpErr:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Stop playback first so no chunk is published after the listeners close.
	if err := ctrl.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("playback shutdown")
	}
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics shutdown")
	}
	return nil
}
