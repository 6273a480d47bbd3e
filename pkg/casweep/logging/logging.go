// Package logging provides component loggers for casweep backed by
// charmbracelet/log. Every logger writes to a rotating log file; with a
// console level set, records at or above it are echoed to stderr.
//
// Basic usage:
//
//	if err := logging.Init(logging.Config{Level: "info"}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	logging.Get("study").Info("case finished", "case", name, "status", status)
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
)

// Level is a logging severity.
type Level int

// Levels from least to most severe.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warn",
	LevelError: "error",
}

// String returns the lower-case level name.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unknown"
}

func (l Level) charm() log.Level {
	switch l {
	case LevelDebug:
		return log.DebugLevel
	case LevelWarn:
		return log.WarnLevel
	case LevelError:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// ErrInvalidLevel is returned for unrecognised level names.
var ErrInvalidLevel = errors.New("invalid log level")

// ParseLevel parses debug, info, warn (or warning), and error.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("%w: %s", ErrInvalidLevel, s)
}

// Config configures the logging system.
type Config struct {
	// Level is the default file log level.
	Level string

	// Path is the log file. Empty uses DefaultLogPath().
	Path string

	// Rotation configures log file rotation.
	Rotation RotationConfig

	// Components overrides the level per component name.
	Components map[string]string

	// ConsoleLevel echoes records at or above this level to Console.
	// Empty disables the console echo.
	ConsoleLevel string

	// Console is the echo destination. Nil means os.Stderr.
	Console io.Writer
}

// DefaultLogPath returns $XDG_STATE_HOME/casweep/casweep.log.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, "casweep", "casweep.log")
}

// DefaultConfig returns the configuration used before a config file is read.
func DefaultConfig() Config {
	return Config{
		Level:    "info",
		Path:     DefaultLogPath(),
		Rotation: DefaultRotationConfig(),
	}
}

// Logger is a component logger.
type Logger struct {
	component string
	file      *log.Logger
	console   *log.Logger
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.emit(LevelDebug, msg, keyvals) }

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) { l.emit(LevelInfo, msg, keyvals) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) { l.emit(LevelWarn, msg, keyvals) }

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.emit(LevelError, msg, keyvals) }

// With returns a logger that adds keyvals to every record.
func (l *Logger) With(keyvals ...interface{}) *Logger {
	next := &Logger{component: l.component, file: l.file.With(keyvals...)}
	if l.console != nil {
		next.console = l.console.With(keyvals...)
	}
	return next
}

// Component returns the component name.
func (l *Logger) Component() string {
	return l.component
}

func (l *Logger) emit(level Level, msg string, keyvals []interface{}) {
	write(l.file, level, msg, keyvals)
	if l.console != nil {
		write(l.console, level, msg, keyvals)
	}
}

func write(lg *log.Logger, level Level, msg string, keyvals []interface{}) {
	switch level {
	case LevelDebug:
		lg.Debug(msg, keyvals...)
	case LevelInfo:
		lg.Info(msg, keyvals...)
	case LevelWarn:
		lg.Warn(msg, keyvals...)
	case LevelError:
		lg.Error(msg, keyvals...)
	}
}

// registry is the process-wide logging state. Loggers handed out before
// Init are rebuilt in place by Init so package-level loggers pick up
// the configuration.
type registry struct {
	mu         sync.RWMutex
	ready      bool
	writer     *RotatingWriter
	level      Level
	components map[string]Level
	console    io.Writer
	consoleLvl Level
	echo       bool
	loggers    map[string]*Logger
}

var global = &registry{
	loggers:    make(map[string]*Logger),
	components: make(map[string]Level),
}

// Init configures logging. Loggers obtained earlier are reconfigured.
func Init(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}

	components := make(map[string]Level, len(cfg.Components))
	for name, lvl := range cfg.Components {
		parsed, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("parsing level for component %s: %w", name, err)
		}
		components[name] = parsed
	}

	var consoleLvl Level
	echo := cfg.ConsoleLevel != ""
	if echo {
		if consoleLvl, err = ParseLevel(cfg.ConsoleLevel); err != nil {
			return fmt.Errorf("parsing console level: %w", err)
		}
	}

	path := cfg.Path
	if path == "" {
		path = DefaultLogPath()
	}
	writer, err := NewRotatingWriter(path, cfg.Rotation)
	if err != nil {
		return fmt.Errorf("creating log writer: %w", err)
	}

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	if global.writer != nil {
		_ = global.writer.Close()
	}
	global.writer = writer
	global.level = level
	global.components = components
	global.console = console
	global.consoleLvl = consoleLvl
	global.echo = echo
	global.ready = true

	for name, lg := range global.loggers {
		*lg = *global.build(name)
	}
	return nil
}

// Get returns the logger for a component. Before Init it discards output.
func Get(component string) *Logger {
	global.mu.RLock()
	lg, ok := global.loggers[component]
	global.mu.RUnlock()
	if ok {
		return lg
	}

	global.mu.Lock()
	defer global.mu.Unlock()
	if lg, ok := global.loggers[component]; ok {
		return lg
	}
	lg = global.build(component)
	global.loggers[component] = lg
	return lg
}

// build creates a logger for component. Callers hold r.mu.
func (r *registry) build(component string) *Logger {
	level := r.level
	if l, ok := r.components[component]; ok {
		level = l
	}

	if !r.ready {
		return &Logger{
			component: component,
			file:      log.NewWithOptions(io.Discard, log.Options{Level: level.charm(), Prefix: component}),
		}
	}

	lg := &Logger{
		component: component,
		file: log.NewWithOptions(r.writer, log.Options{
			Level:           level.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Prefix:          component,
		}),
	}
	if r.echo {
		lg.console = log.NewWithOptions(r.console, log.Options{
			Level:           r.consoleLvl.charm(),
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
			Prefix:          component,
		})
	}
	return lg
}

// Close flushes and closes the log file. Loggers revert to discarding.
func Close() error {
	global.mu.Lock()
	defer global.mu.Unlock()

	if !global.ready {
		return nil
	}
	global.ready = false

	var err error
	if global.writer != nil {
		err = global.writer.Close()
		global.writer = nil
	}
	for name, lg := range global.loggers {
		*lg = *global.build(name)
	}
	if err != nil {
		return fmt.Errorf("closing log writer: %w", err)
	}
	return nil
}
