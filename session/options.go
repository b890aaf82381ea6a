package session

import (
	"io"
	"log/slog"
	"time"
)

// defaultReconnectWait matches the original's fixed 5 s backoff between
// connect attempts and between a dropped session and the next reconnect.
const defaultReconnectWait = 5 * time.Second

// defaultYieldTimeout matches the controller's inbound poll window.
const defaultYieldTimeout = 100 * time.Millisecond

// defaultQueueCapacity bounds the publish queue when the caller does not
// supply one explicitly.
const defaultQueueCapacity = 32

type controllerOptions struct {
	log           *slog.Logger
	reconnectWait time.Duration
	yieldTimeout  time.Duration
}

func defaultOptions() controllerOptions {
	return controllerOptions{
		log:           slog.New(slog.NewTextHandler(io.Discard, nil)),
		reconnectWait: defaultReconnectWait,
		yieldTimeout:  defaultYieldTimeout,
	}
}

// Option configures a Controller.
type Option func(*controllerOptions)

// WithLogger sets the structured logger used for lifecycle and pipeline
// diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *controllerOptions) { o.log = l }
}

// WithReconnectWait overrides the wait between a dropped/failed connection
// and the next connect attempt.
func WithReconnectWait(d time.Duration) Option {
	return func(o *controllerOptions) { o.reconnectWait = d }
}

// WithYieldTimeout overrides the per-iteration inbound poll window.
func WithYieldTimeout(d time.Duration) Option {
	return func(o *controllerOptions) { o.yieldTimeout = d }
}
