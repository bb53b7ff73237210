package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/config"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/logger"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/metrics"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/mixer"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/source"
	"github.com/johnnybpena1989/raspberry-pi-camera-stream-manager/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var (
		configPath         string
		addr               string
		sources            []string
		transitionInterval float64
		transitionDuration float64
		targetFPS          int
		logLevel           string
		logColor           bool
		watchConfig        bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// CLI flags win over env and file values.
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.Addr = addr
			}
			if flags.Changed("source") {
				cfg.Sources.URLs = sources
			}
			if flags.Changed("transition-interval") {
				cfg.Mixer.TransitionIntervalSeconds = transitionInterval
			}
			if flags.Changed("transition-duration") {
				cfg.Mixer.TransitionDurationSeconds = transitionDuration
			}
			if flags.Changed("fps") {
				cfg.Mixer.TargetFPS = targetFPS
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-color") {
				cfg.LogColor = logColor
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			level, err := logger.ParseLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
			logger.Init(level, os.Stderr, cfg.LogColor)

			return runServe(cfg, configPath, watchConfig)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config.toml", "Path to configuration file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "Source stream URL (repeatable)")
	cmd.Flags().Float64Var(&transitionInterval, "transition-interval", 30, "Seconds between crossfade starts")
	cmd.Flags().Float64Var(&transitionDuration, "transition-duration", 3, "Seconds a crossfade lasts")
	cmd.Flags().IntVar(&targetFPS, "fps", 30, "Mixer output frame rate")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error, silent)")
	cmd.Flags().BoolVar(&logColor, "log-color", true, "Enable colored log output")
	cmd.Flags().BoolVar(&watchConfig, "watch-config", true, "Re-probe sources when the config file changes")

	return cmd
}

func runServe(cfg config.Config, configPath string, watchConfig bool) error {
	logger.Info("Main", "Stream manager starting with %d source(s)", len(cfg.Sources.URLs))

	m := metrics.New()

	registry := source.NewRegistry(cfg.Sources.URLs, source.ReaderOptions{
		UserAgent:      cfg.Sources.UserAgent,
		ConnectTimeout: cfg.ConnectTimeout(),
		ReadTimeout:    cfg.ReadTimeout(),
		Metrics:        m,
	}, m)

	bufA, _ := registry.Buffer(cfg.Mixer.SourceA)
	bufB, _ := registry.Buffer(cfg.Mixer.SourceB)
	mx := mixer.New(bufA, bufB, mixer.Options{
		Schedule: cfg.Schedule(),
		Tick:     cfg.TickInterval(),
		Metrics:  m,
	})

	server := web.NewServer(cfg, registry, mx, m)

	registry.StartAll()
	mx.Start()

	var watcher *config.Watcher
	if watchConfig && configPath != "" {
		watcher = config.NewWatcher(configPath, 0)
		watcher.OnReload(func(config.Config) {
			// The running pipeline keeps its startup config; a reload
			// only refreshes the reachability view.
			server.RefreshProbes()
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("Main", "Config watcher disabled: %v", err)
			watcher = nil
		}
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Main", "Listening on %s", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Main", "Received %v, shutting down", sig)
	case err := <-errCh:
		logger.Error("Main", "HTTP server error: %v", err)
	}

	if watcher != nil {
		watcher.Stop()
	}

	// Stop is cooperative: workers observe the request at their next loop
	// iteration, so join them before tearing down the HTTP server.
	mx.Stop()
	registry.StopAll()
	mx.Wait()

	if err := shutdownHTTP(httpServer, 5*time.Second); err != nil {
		return err
	}

	logger.Info("Main", "Stream manager stopped")
	return nil
}

// shutdownHTTP drains idle connections, then force-closes the rest. MJPEG
// and SSE responses never end on their own, so with any viewer connected the
// graceful drain is expected to time out.
func shutdownHTTP(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Info("Main", "Open streams did not drain (%v), closing connections", err)
		return srv.Close()
	}
	return nil
}
