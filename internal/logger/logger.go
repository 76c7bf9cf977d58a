// Package logger configures the global zerolog logger and derives scoped
// loggers for requests and decision sessions.
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const requestIDKey contextKey = "request_id"

const (
	milliTimeFormat = "2006-01-02T15:04:05.000Z07:00"
	callerWidth     = 30
	maxBodyLog      = 1000
)

// Options controls where and how much the process logs.
type Options struct {
	Out        io.Writer
	Level      string
	File       string
	Color      bool
	Caller     bool
	TimeFormat string
}

// FromEnv reads LOG_LEVEL, LOG_FILE and DEV into Options for a service
// writing to stdout.
func FromEnv() Options {
	return Options{
		Out:    os.Stdout,
		Level:  os.Getenv("LOG_LEVEL"),
		File:   os.Getenv("LOG_FILE"),
		Color:  devMode(),
		Caller: true,
	}
}

// Init configures the global logger from the environment.
func Init() {
	Setup(FromEnv())
}

// Setup replaces the global logger. An unknown level falls back to info and
// an unwritable log file is reported and skipped.
func Setup(opts Options) {
	zerolog.TimeFieldFormat = milliTimeFormat
	zerolog.TimestampFunc = func() time.Time { return time.Now().UTC() }
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return padCaller(fmt.Sprintf("%s:%d", filepath.Base(file), line))
	}

	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.TimeFormat == "" {
		opts.TimeFormat = milliTimeFormat
	}
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        opts.Out,
		TimeFormat: opts.TimeFormat,
		NoColor:    !opts.Color,
	}

	var fileErr error
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fileErr = err
		} else {
			output = io.MultiWriter(output, f)
		}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if opts.Caller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()

	if fileErr != nil {
		log.Warn().Err(fileErr).Str("path", opts.File).Msg("Log file unavailable, logging to console only")
	}
	log.Debug().Str("level", level.String()).Bool("color", opts.Color).Msg("Logger initialized")
}

func padCaller(path string) string {
	if len(path) >= callerWidth {
		return path[len(path)-callerWidth:]
	}
	return path + strings.Repeat(" ", callerWidth-len(path))
}

func devMode() bool {
	for _, key := range []string{"DEV", "DEV_MODE", "DEVELOPMENT"} {
		if os.Getenv(key) == "true" {
			return true
		}
	}
	return false
}

// NewRequestID returns a short random identifier for correlating request logs.
func NewRequestID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the request ID from context, or empty string.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ForRequest returns the global logger enriched with the request ID from ctx.
func ForRequest(ctx context.Context) zerolog.Logger {
	id := RequestIDFromContext(ctx)
	if id == "" {
		return log.Logger
	}
	return log.Logger.With().Str("requestId", id).Logger()
}

// ForSession returns a logger tagged with a decision session's client and,
// once a match has started, its match ID.
func ForSession(clientID, matchID string) zerolog.Logger {
	ctx := log.Logger.With().Str("clientId", clientID)
	if matchID != "" {
		ctx = ctx.Str("matchId", matchID)
	}
	return ctx.Logger()
}

// LogBody logs an HTTP body at debug level under key, truncated to a fixed
// length.
func LogBody(l zerolog.Logger, key string, body []byte) {
	if len(body) == 0 {
		return
	}
	if len(body) > maxBodyLog {
		l.Debug().Str(key, string(body[:maxBodyLog])).Bool("truncated", true).Msg("Body")
		return
	}
	l.Debug().Str(key, string(body)).Msg("Body")
}
