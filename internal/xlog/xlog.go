// Package xlog owns the process-wide zerolog setup. Components ask for
// child loggers instead of touching the global state.
package xlog

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RunLogName is the per-run log file inside a run directory.
const RunLogName = "run.log"

// Config captures options for the global logger.
type Config struct {
	Level   string    // optional level name ("debug", "info", ...)
	Console bool      // render for a terminal instead of JSON lines
	Output  io.Writer // defaults to os.Stderr
}

var (
	once sync.Once
	base zerolog.Logger
	out  io.Writer
)

// Configure initialises the global logger exactly once. Later calls are
// no-ops, so the CLI entrypoint should configure before any logging.
func Configure(cfg Config) {
	once.Do(func() {
		level := zerolog.InfoLevel
		if cfg.Level != "" {
			if parsed, err := zerolog.ParseLevel(cfg.Level); err == nil {
				level = parsed
			}
		} else if env := os.Getenv("CLUSTERLAB_LOG_LEVEL"); env != "" {
			if parsed, err := zerolog.ParseLevel(env); err == nil {
				level = parsed
			}
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		out = cfg.Output
		if out == nil {
			out = os.Stderr
		}
		if cfg.Console {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
		}

		base = zerolog.New(out).With().
			Timestamp().
			Str("service", "clusterlab").
			Logger()
	})
}

func logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with a component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str("component", component).Logger()
}

// ToFile returns a logger that tees JSON lines into run.log inside dir
// while still writing to the configured output. The caller closes the
// returned file when the run ends.
func ToFile(dir string) (zerolog.Logger, io.Closer, error) {
	f, err := os.OpenFile(filepath.Join(dir, RunLogName),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return logger(), nil, err
	}
	return logger().Output(zerolog.MultiLevelWriter(out, f)), f, nil
}
