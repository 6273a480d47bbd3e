package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size" yaml:"max_size"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Daily      bool   `mapstructure:"daily" yaml:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level        string            `mapstructure:"level" yaml:"level"`
	Path         string            `mapstructure:"path" yaml:"path"`
	ConsoleLevel string            `mapstructure:"console_level" yaml:"console_level"`
	Rotation     RotationConfig    `mapstructure:"rotation" yaml:"rotation"`
	Components   map[string]string `mapstructure:"components" yaml:"components"`
}

// SolverConfig names the solver installation variable.
type SolverConfig struct {
	Env         string `mapstructure:"env" yaml:"env"`
	Placeholder string `mapstructure:"placeholder" yaml:"placeholder"`
}

// StudyConfig selects the input template and the definitions a study runs with.
type StudyConfig struct {
	Input          string `mapstructure:"input" yaml:"input"`
	Model          string `mapstructure:"model" yaml:"model"`
	Calculator     string `mapstructure:"calculator" yaml:"calculator"`
	ResultsDir     string `mapstructure:"results_dir" yaml:"results_dir"`
	DefinitionsDir string `mapstructure:"definitions_dir" yaml:"definitions_dir"`
}

// OutputConfig selects the result table formatter.
type OutputConfig struct {
	Format   string `mapstructure:"format" yaml:"format"`
	Template string `mapstructure:"template" yaml:"template"`
}

// HistoryConfig configures the study history store.
type HistoryConfig struct {
	Enabled       bool   `mapstructure:"enabled" yaml:"enabled"`
	Path          string `mapstructure:"path" yaml:"path"`
	RetentionDays int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// Config represents the application configuration.
type Config struct {
	Solver  SolverConfig  `mapstructure:"solver" yaml:"solver"`
	Study   StudyConfig   `mapstructure:"study" yaml:"study"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("solver.env", DefaultSolverEnv)
	v.SetDefault("solver.placeholder", DefaultSolverPlaceholder)

	v.SetDefault("study.input", DefaultInput)
	v.SetDefault("study.model", DefaultModel)
	v.SetDefault("study.calculator", DefaultCalculator)
	v.SetDefault("study.results_dir", DefaultResultsDir)
	v.SetDefault("study.definitions_dir", DefaultDefinitionsDir)

	v.SetDefault("output.format", DefaultOutputFormat)
	v.SetDefault("output.template", "")

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "") // Empty means use DefaultHistoryPath
	v.SetDefault("history.retention_days", DefaultRetentionDays)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "") // Empty means use DefaultLogPath
	v.SetDefault("logging.console_level", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", DefaultComponentLevels)
}

// New returns a viper instance set up with casweep's search paths,
// environment binding and defaults. Callers may bind flags to it before
// calling Read.
//
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/casweep/config.yaml
//   - $HOME/.config/casweep/config.yaml
//
// Environment variables are prefixed with CASWEEP_ (e.g. CASWEEP_STUDY_INPUT).
func New() (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "casweep"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "casweep"))

	v.SetEnvPrefix("CASWEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	return v, nil
}

// Read loads the config file into v (a missing file is fine) and decodes
// the merged settings.
func Read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is acceptable; we use defaults
	}
	return Decode(v)
}

// Decode unmarshals the current state of v and expands ~ in paths.
func Decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.History.Path, &cfg.Logging.Path, &cfg.Study.Input, &cfg.Study.ResultsDir, &cfg.Study.DefinitionsDir} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}
	return &cfg, nil
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	v, err := New()
	if err != nil {
		return nil, err
	}
	return Read(v)
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "casweep"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, ".config", "casweep"), nil
}

// ConfigPath returns the path of the config file inside ConfigDir.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	if err := EnsureConfigDir(); err != nil {
		return "", err
	}

	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# casweep configuration

# Solver installation. When the variable is unset the placeholder is used
# and a warning is printed.
solver:
  env: %s
  placeholder: %s

# Study inputs, relative to the working directory
study:
  input: %s
  model: %s
  calculator: %s
  results_dir: %s
  definitions_dir: %s

# Result table format: plain, pretty, json, jsonl, yaml, csv, tsv, markdown, paths, template
output:
  format: %s
  template: ""

# Study history
history:
  enabled: true
  # Empty means use default: $XDG_DATA_HOME/casweep/history
  path: ""
  retention_days: %d

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means use default: $XDG_STATE_HOME/casweep/casweep.log)
  path: ""
  # Console level when --verbose is not given (empty disables console output)
  console_level: ""
  # Log rotation settings
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  # Per-component log levels
  components:
    study: info
    history: info
    cli: info
    tui: warn
`, DefaultSolverEnv, DefaultSolverPlaceholder,
		DefaultInput, DefaultModel, DefaultCalculator, DefaultResultsDir, DefaultDefinitionsDir,
		DefaultOutputFormat, DefaultRetentionDays)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}

	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/casweep/ for the history database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "casweep")
}

// StateDir returns $XDG_STATE_HOME/casweep/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "casweep")
}

// HistoryPath returns the configured history path or the default.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(DataDir(), "history")
}

// LogPath returns the configured log path or the default.
func (c *Config) LogPath() string {
	if c.Logging.Path != "" {
		return c.Logging.Path
	}
	return filepath.Join(StateDir(), "casweep.log")
}
