// Package logger sets up the process-wide zerolog logger and hands out
// component loggers to the packages that log.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Config represents logger configuration.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "console" or "json"; empty picks console for stdout and json for files
	File   string // Log file path; empty logs to stdout
}

var (
	mu      sync.Mutex
	logFile *os.File
)

// Init replaces the global logger. A file opened by an earlier Init is closed.
func Init(cfg Config) error {
	var w io.Writer = os.Stdout
	var f *os.File
	if cfg.File != "" {
		var err error
		f, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrapf(err, "failed to open log file %s", cfg.File)
		}
		w = f
	}

	l := New(w, cfg)

	mu.Lock()
	defer mu.Unlock()
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.CallerMarshalFunc = shortCaller
	zerolog.DefaultContextLogger = &l
	zlog.Logger = l
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	return nil
}

// New builds a logger writing to w. Debug level adds the caller.
func New(w io.Writer, cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)

	format := strings.ToLower(cfg.Format)
	if format == "" {
		format = "console"
		if cfg.File != "" {
			format = "json"
		}
	}

	if format == "console" {
		cw := zerolog.ConsoleWriter{
			Out:           w,
			TimeFormat:    time.TimeOnly,
			PartsOrder:    []string{"time", "level", "component", "message", "caller"},
			FieldsExclude: []string{"component"},
			FormatPartValueByName: func(i interface{}, name string) string {
				if i == nil {
					return ""
				}
				if name == "component" {
					return "[" + fmt.Sprint(i) + "]"
				}
				return fmt.Sprint(i)
			},
			FormatCaller: func(i interface{}) string {
				if i == nil {
					return ""
				}
				return "(" + fmt.Sprint(i) + ")"
			},
		}
		w = cw
	}

	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if level == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}

// shortCaller trims a caller to its directory and file name.
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(filepath.ToSlash(file), "/")
	if len(parts) > 1 {
		file = parts[len(parts)-2] + "/" + parts[len(parts)-1]
	}
	return file + ":" + strconv.Itoa(line)
}

// parseLevel parses the log level string.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger logs for one component. It resolves the global logger on every
// call, so package-level loggers pick up a later Init.
type Logger struct {
	component string
}

// Component returns the logger for a component.
func Component(name string) Logger {
	return Logger{component: name}
}

func (l Logger) base() *zerolog.Logger {
	zl := zlog.With().Str("component", l.component).Logger()
	return &zl
}

// Debug starts a debug message.
func (l Logger) Debug() *zerolog.Event { return l.base().Debug() }

// Info starts an info message.
func (l Logger) Info() *zerolog.Event { return l.base().Info() }

// Warn starts a warning message.
func (l Logger) Warn() *zerolog.Event { return l.base().Warn() }

// Error starts an error message.
func (l Logger) Error() *zerolog.Event { return l.base().Error() }

// Write logs p as a warning, one message per call. It lets the logger back
// a standard library *log.Logger.
func (l Logger) Write(p []byte) (int, error) {
	l.Warn().Msg(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
