package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup builds the process logger and installs it as the global logger and the
// context default, so log.Logger and log.Ctx on a bare context log through it.
func Setup(dev bool) zerolog.Logger {
	var logger zerolog.Logger
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Caller().Logger()

	if dev {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, FormatTimestamp: func(i any) string {
			return time.Now().Format(time.RFC3339)
		}}).Level(level).With().Stack().Logger()
	}

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	return logger
}

var _ http.RoundTripper = (*BackendCalls)(nil)

// BackendCalls logs every outgoing backend request with its status and duration.
type BackendCalls struct {
	logger zerolog.Logger
	next   http.RoundTripper
}

// NewBackendCalls wraps next, which defaults to http.DefaultTransport.
func NewBackendCalls(logger zerolog.Logger, next http.RoundTripper) *BackendCalls {
	if next == nil {
		next = http.DefaultTransport
	}
	return &BackendCalls{logger: logger, next: next}
}

func (b *BackendCalls) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()

	logger := b.logger.With().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Logger()

	resp, err := b.next.RoundTrip(req)
	if err != nil {
		logger.Error().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("backend call")

		return resp, err
	}

	event := logger.Debug()
	if resp.StatusCode >= http.StatusBadRequest {
		event = logger.Warn()
	}
	event.
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("backend call")

	return resp, nil
}
