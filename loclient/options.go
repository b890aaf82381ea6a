package loclient

import (
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/transport"
)

// defaultQueueCapacity bounds the publish queue when the host does not
// override it.
const defaultQueueCapacity = 32

type clientOptions struct {
	log         *slog.Logger
	level       *slog.LevelVar
	password    string
	tlsConfig   *tls.Config
	keepAlive   time.Duration
	frameLog    transport.FrameLogMode
	queueCap    int
	caps        registry.Capacities
	reconnect   time.Duration
	yieldWindow time.Duration
}

func defaultClientOptions() clientOptions {
	level := new(slog.LevelVar)
	return clientOptions{
		log:         slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: level})),
		level:       level,
		keepAlive:   60 * time.Second,
		queueCap:    defaultQueueCapacity,
		caps:        registry.DefaultCapacities(),
		reconnect:   5 * time.Second,
		yieldWindow: 100 * time.Millisecond,
	}
}

// Option configures a Client at construction time.
type Option func(*clientOptions) error

// WithLogger overrides the structured logger every layer (transport,
// session, resource) reports through. SetDbgLevel has no effect on a
// logger supplied this way: its verbosity is the caller's to manage.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) error {
		if l == nil {
			return nil
		}
		o.log = l
		o.level = nil
		return nil
	}
}

// WithAPIKey sets the MQTT password from a 32-hex-character API key,
// rejecting it with ErrInvalidAPIKey if malformed.
func WithAPIKey(hex string) Option {
	return func(o *clientOptions) error {
		if !CheckAPIKey(hex) {
			return ErrInvalidAPIKey
		}
		o.password = hex
		return nil
	}
}

// WithAPIKeyParts sets the MQTT password from the two uint64 halves the
// original C API took it as, joined the same way: 16 hex digits each.
func WithAPIKeyParts(hi, lo uint64) Option {
	return func(o *clientOptions) error {
		key := fmt.Sprintf("%016x%016x", hi, lo)
		if !CheckAPIKey(key) {
			return ErrInvalidAPIKey
		}
		o.password = key
		return nil
	}
}

// WithTLSConfig enables TLS on the underlying MQTT connection.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *clientOptions) error { o.tlsConfig = cfg; return nil }
}

// WithKeepAlive overrides the MQTT keepalive interval.
func WithKeepAlive(d time.Duration) Option {
	return func(o *clientOptions) error { o.keepAlive = d; return nil }
}

// WithQueueCapacity overrides the publish queue's fixed capacity.
func WithQueueCapacity(n int) Option {
	return func(o *clientOptions) error { o.queueCap = n; return nil }
}

// WithCapacities overrides the registry's fixed attachment table sizes.
func WithCapacities(caps registry.Capacities) Option {
	return func(o *clientOptions) error { o.caps = caps; return nil }
}

// WithReconnectWait overrides the wait between a dropped connection and the
// next connect attempt.
func WithReconnectWait(d time.Duration) Option {
	return func(o *clientOptions) error { o.reconnect = d; return nil }
}

// WithYieldTimeout overrides the per-iteration inbound poll window used by
// Run and Cycle.
func WithYieldTimeout(d time.Duration) Option {
	return func(o *clientOptions) error { o.yieldWindow = d; return nil }
}
