package main

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dj-oyu/moodface/internal/config"
	"github.com/dj-oyu/moodface/internal/logger"
	"github.com/dj-oyu/moodface/internal/metrics"
	"github.com/dj-oyu/moodface/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the avatar server (frame ingest, MJPEG, SSE, status)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			m := metrics.New()
			srv := server.New(cfg, nil, m)

			logger.Info("Main", "moodface %s starting (fps=%d, stabilize=%d, jpeg=%d)",
				Version, cfg.TargetFPS, cfg.StabilizeFrames, cfg.JPEGQuality)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Run(ctx)
			})
			if cfg.MetricsAddr != "" {
				g.Go(func() error {
					logger.Info("Main", "Metrics on %s/metrics", cfg.MetricsAddr)
					return m.StartServer(ctx, cfg.MetricsAddr)
				})
			}

			err := g.Wait()
			logger.Info("Main", "Stopped")
			return err
		},
	}

	f := cmd.Flags()
	f.String("http", defaults.Addr, "HTTP server address")
	f.String("metrics", defaults.MetricsAddr, "Separate metrics server address (empty serves /metrics on --http)")
	f.Int("fps", defaults.TargetFPS, "Maximum MJPEG frame rate")
	f.Int("stabilize", defaults.StabilizeFrames, "Consecutive frames required before the label changes (1 disables)")
	f.Int("jpeg-quality", defaults.JPEGQuality, "MJPEG quality (1-100)")
	bindFlags(a.v, f, map[string]string{
		"addr":             "http",
		"metrics_addr":     "metrics",
		"target_fps":       "fps",
		"stabilize_frames": "stabilize",
		"jpeg_quality":     "jpeg-quality",
	})
	return cmd
}
