package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/casweep/pkg/casweep/config"
	"github.com/jamesainslie/casweep/pkg/casweep/logging"
	"github.com/jamesainslie/casweep/pkg/casweep/types"
)

// initializeLogging is the root PersistentPreRunE hook. It makes sure the
// XDG directories exist and configures the file logger. A broken config
// file does not stop logging; it falls back to defaults and the command
// reports the config error itself.
func initializeLogging(cmd *cobra.Command, args []string) error {
	if err := ensureDirectories(); err != nil {
		return err
	}

	logCfg := logging.DefaultConfig()
	if cfg, err := loadConfig(); err == nil {
		logCfg = loggingConfig(cfg)
	}
	if getVerbose() {
		logCfg.ConsoleLevel = "debug"
	}

	if err := logging.Init(logCfg); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}

	logging.Get("cli").Debug("command started", "command", commandName(cmd))
	return nil
}

// ensureDirectories creates the config, data and state directories.
func ensureDirectories() error {
	if err := config.EnsureConfigDir(); err != nil {
		return err
	}
	for _, dir := range []string{config.DataDir(), config.StateDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// loggingConfig converts the logging section of the config.
func loggingConfig(cfg *config.Config) logging.Config {
	return logging.Config{
		Level:        cfg.Logging.Level,
		Path:         cfg.LogPath(),
		Rotation:     parseRotationConfig(cfg.Logging.Rotation),
		Components:   cfg.Logging.Components,
		ConsoleLevel: cfg.Logging.ConsoleLevel,
	}
}

// parseRotationConfig converts the config rotation settings, falling back
// to the default size when max_size is empty or unparseable.
func parseRotationConfig(rc config.RotationConfig) logging.RotationConfig {
	maxSize := int64(logging.DefaultMaxSize)
	if rc.MaxSize != "" {
		if size, err := types.ParseSize(rc.MaxSize); err == nil && size > 0 {
			maxSize = size
		}
	}
	return logging.RotationConfig{
		MaxSize:    maxSize,
		MaxAge:     rc.MaxAge,
		MaxBackups: rc.MaxBackups,
		Daily:      rc.Daily,
	}
}

func closeLogging() error {
	return logging.Close()
}

func commandName(cmd *cobra.Command) string {
	if cmd == nil {
		return rootCmd.Name()
	}
	return cmd.CommandPath()
}
