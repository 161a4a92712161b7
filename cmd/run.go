package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ffx64/nowplaying-rpc/client"
	"github.com/ffx64/nowplaying-rpc/internal/config"
	"github.com/ffx64/nowplaying-rpc/internal/coverart"
	"github.com/ffx64/nowplaying-rpc/internal/media"
	"github.com/ffx64/nowplaying-rpc/internal/metrics"
	"github.com/ffx64/nowplaying-rpc/internal/presence"
	"github.com/ffx64/nowplaying-rpc/internal/status"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func runCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Follow the music player and publish rich presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup(flags)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			return runDaemon(ctx, cfg, logger)
		},
	}
}

func runDaemon(ctx context.Context, cfg config.Config, logger zerolog.Logger) error {
	logger.Info().Str("version", version).Msg("nowplaying-rpc starting")

	rec := metrics.New()
	cli := newClient(cfg, logger, client.WithClientMetrics(rec))
	if err := cli.Connect(ctx); err != nil {
		return fmt.Errorf("connect to discord: %w", err)
	}
	defer cli.Close()

	opts := []presence.Option{
		presence.WithRecorder(rec),
		presence.WithLogger(logger.With().Str("component", "presence").Logger()),
	}
	if cfg.CoverArt.Enabled {
		cache, err := openCoverCache(cfg.CoverArt, logger)
		if err != nil {
			return err
		}
		defer cache.Close()
		resolver := coverart.NewResolver(
			cache,
			coverart.NewSearcher(cfg.CoverArt.SearchURL, cfg.CoverArt.Timeout),
			logger.With().Str("component", "coverart").Logger(),
		)
		opts = append(opts, presence.WithArt(resolver))
	}
	pipeline := presence.New(cli, media.AllowList(cfg.AllowedSources...), opts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.Status.Addr != "" {
		router := status.NewRouter(pipeline.Snapshot, cli.State, rec.Handler())
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := status.Serve(ctx, cfg.Status.Addr, router, logger); err != nil {
				logger.Error().Err(err).Msg("status server stopped")
			}
		}()
	}

	events := make(chan media.Event, 8)
	source := media.NewMPDSource(cfg.MPD.Network, cfg.MPD.Address, cfg.MPD.Password,
		logger.With().Str("component", "mpd").Logger())

	var sourceErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()
		sourceErr = source.Run(ctx, events)
	}()

	_ = pipeline.Run(ctx, events)
	cancel()
	wg.Wait()

	if sourceErr != nil {
		return fmt.Errorf("media source: %w", sourceErr)
	}
	logger.Info().Msg("nowplaying-rpc stopped")
	return nil
}

func openCoverCache(cfg config.CoverArtConfig, logger zerolog.Logger) (coverart.Cache, error) {
	dir := cfg.CacheDir
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logger.Warn().Err(err).Msg("no user cache dir, cover art cache kept in memory")
			return coverart.NewMemoryCache(), nil
		}
		dir = filepath.Join(base, "nowplaying-rpc", "coverart")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cover art cache dir: %w", err)
	}
	logger.Debug().Str("path", dir).Msg("cover art cache")
	cache, err := coverart.OpenBadgerCache(dir)
	if err != nil {
		return nil, err
	}
	return cache, nil
}
