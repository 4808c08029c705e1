package main

import (
	"fmt"
	"os"

	"github.com/malcolmmathew-zz/bot-engine/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "botengine",
	Short: "botengine runs declarative chat flows behind a messaging webhook",
	Long: `botengine interprets a flow of menus and prompt lists, keeps one session per user,
and commits the collected answers to the declared collections.

Settings come from BOTENGINE_* environment variables; flags override them.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringP("flow", "f", "", "Flow description file (YAML or JSON)")
	flags.String("texts", "", "Optional YAML file mapping content keys to texts")
	flags.String("store", "", "Session store: memory, redis, sqlite or file")
	flags.String("redis-addr", "", "Redis address")
	flags.String("sqlite-dsn", "", "SQLite database file")
	flags.String("file-dir", "", "Directory for the file store")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
}

// loadConfig reads the environment and applies explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	flags := cmd.Flags()
	overrides := map[string]*string{
		"flow":       &cfg.FlowPath,
		"texts":      &cfg.TextsPath,
		"store":      &cfg.Store,
		"redis-addr": &cfg.RedisAddr,
		"sqlite-dsn": &cfg.SQLiteDSN,
		"file-dir":   &cfg.FileDir,
		"log-level":  &cfg.LogLevel,
		"log-format": &cfg.LogFormat,
	}
	for name, target := range overrides {
		if flags.Changed(name) {
			*target, _ = flags.GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
