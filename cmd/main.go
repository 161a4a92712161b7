package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ffx64/nowplaying-rpc/client"
	"github.com/ffx64/nowplaying-rpc/internal/config"
	"github.com/ffx64/nowplaying-rpc/internal/logging"
	"github.com/ffx64/nowplaying-rpc/transport/ipc"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type globalFlags struct {
	configPath string
	logLevel   string
	verbose    bool
}

func main() {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "nowplaying-rpc",
		Short: "Show what you are listening to as Discord rich presence",
		Long: `nowplaying-rpc follows your music player and publishes the current
track to the local Discord client over its IPC socket.

Updates are coalesced so Discord never sees more than one change
per cooldown window, and the latest track always wins.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to a TOML config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "debug logging, including outgoing payloads")

	rootCmd.AddCommand(
		runCmd(&flags),
		setCmd(&flags),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and the logger shared by every command.
func setup(flags *globalFlags) (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	level := cfg.LogLevel
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	if flags.verbose {
		level = "debug"
	}
	return cfg, logging.New("nowplaying-rpc", level), nil
}

func newClient(cfg config.Config, logger zerolog.Logger, extra ...client.Option) *client.Client {
	opts := []client.Option{
		client.WithLogger(logger.With().Str("component", "ipc").Logger()),
		client.WithReadTimeout(cfg.ReadTimeout),
		client.WithClientCooldown(cfg.Cooldown),
	}
	if cfg.IPCBase != "" {
		opts = append(opts, client.WithEndpoints(ipc.CandidatePaths(cfg.IPCBase)))
	}
	cli := client.NewClient(cfg.ClientID, append(opts, extra...)...)

	cli.OnReady(func(info map[string]any) {
		user, _ := info["user"].(map[string]any)
		logger.Info().Interface("user", user["username"]).Msg("discord READY")
	})
	cli.OnError(func(err error) {
		logger.Warn().Err(err).Msg("discord update failed")
	})
	return cli
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
