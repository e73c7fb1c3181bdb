package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"climate-server/internal/config"
	"climate-server/internal/logging"
)

// cli carries state shared by the subcommands once the root pre-run has
// loaded configuration.
type cli struct {
	cfgFile string
	v       *viper.Viper
	cfg     config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.NewViper()}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Read-only HTTP API over the Hawaii climate dataset",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, toml or json); environment variables override it")
	flags.String("sqlite-path", "", "path of the SQLite dataset (SQLITE_PATH)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	_ = c.v.BindPFlag("sqlite_path", flags.Lookup("sqlite-path"))
	_ = c.v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(c.newServeCmd(), c.newLoadCmd())
	return root
}

func (c *cli) loadConfig() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
		if err := c.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", c.cfgFile, err)
		}
	}

	cfg, err := config.Load(c.v)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	c.cfg = cfg

	slog.SetDefault(logging.New(cfg, version, appName))
	if c.cfgFile != "" {
		slog.Info("using config file", "config", c.v.ConfigFileUsed())
	}
	slog.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)
	return nil
}
