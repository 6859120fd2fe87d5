package main

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ibrahzuma/umoja-hardware-system/internal/config"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath string
	envFiles   []string
	origin     string
	topic      string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	o := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "notifyd",
		Short: "Umoja shop notification client",
		Long: `notifyd keeps a reconnecting WebSocket channel open to the shop server,
shows sales and low stock notifications as they arrive and can optionally
archive them to PostgreSQL or relay them to Redis.

It also issues one-off REST calls with the same credentials.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			loadEnvFiles(o.envFiles)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "", "path to YAML config file")
	flags.StringSliceVar(&o.envFiles, "env-file", []string{".env", ".env.local"}, "dotenv files loaded before the config")
	flags.StringVar(&o.origin, "origin", "", "server origin, e.g. https://shop.example.com (overrides config)")
	flags.StringVar(&o.topic, "topic", "", "channel topic (overrides config)")
	flags.StringVar(&o.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	flags.StringVar(&o.logFormat, "log-format", "", "text or json (overrides config)")

	cmd.AddCommand(
		newListenCmd(o),
		newRequestCmd(o),
		newVersionCmd(),
	)

	return cmd
}

// loadEnvFiles loads dotenv files in order. Missing files are skipped and
// variables already set in the environment win.
func loadEnvFiles(files []string) {
	for _, f := range files {
		if err := godotenv.Load(f); err == nil {
			slog.Debug("loaded env file", "file", f)
		}
	}
}

// load reads the configuration and builds the process logger.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadWithDefaults(o.configPath, o.apply)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	return cfg, logger, nil
}

// apply copies explicitly set flags over the loaded configuration.
func (o *rootOptions) apply(cfg *config.Config) {
	if o.origin != "" {
		cfg.Server.Origin = o.origin
	}
	if o.topic != "" {
		cfg.Server.Topic = o.topic
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.logFormat != "" {
		cfg.Log.Format = o.logFormat
	}
}
