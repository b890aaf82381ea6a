package transport

import (
	"crypto/tls"
	"io"
	"log/slog"
	"time"
)

// clientOptions holds configuration for the MQTT client. It is built up by
// functional Option values passed to Dial.
type clientOptions struct {
	ClientID string
	Username string
	Password string

	KeepAlive      time.Duration
	CleanSession   bool
	ConnectTimeout time.Duration

	TLSConfig *tls.Config

	Logger       *slog.Logger
	FrameLogging FrameLogMode

	MaxIncomingPacket int
}

func defaultOptions() clientOptions {
	return clientOptions{
		CleanSession:      true,
		KeepAlive:         60 * time.Second,
		ConnectTimeout:    15 * time.Second,
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxIncomingPacket: 0, // 0 lets wire.ReadPacket fall back to the protocol maximum
	}
}

// Option configures a Client constructed by Dial.
type Option func(*clientOptions)

// WithCredentials sets the MQTT username/password carried in CONNECT.
func WithCredentials(username, password string) Option {
	return func(o *clientOptions) {
		o.Username = username
		o.Password = password
	}
}

// WithKeepAlive sets the MQTT keepalive interval advertised in CONNECT.
func WithKeepAlive(d time.Duration) Option {
	return func(o *clientOptions) { o.KeepAlive = d }
}

// WithConnectTimeout bounds the TCP/TLS dial and the CONNACK wait.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.ConnectTimeout = d }
}

// WithTLSConfig enables TLS on the underlying connection.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(o *clientOptions) { o.TLSConfig = cfg }
}

// WithLogger sets the structured logger used for connection and frame
// events. A nil logger is treated as a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		if l == nil {
			l = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		o.Logger = l
	}
}

// WithMaxIncomingPacket bounds the remaining-length a received packet may
// declare. 0 uses the MQTT protocol maximum.
func WithMaxIncomingPacket(n int) Option {
	return func(o *clientOptions) { o.MaxIncomingPacket = n }
}

// FrameLogMode controls how much detail Publish and Yield log about PUBLISH
// frames. Other frame types are not logged at any level.
type FrameLogMode int

const (
	// FrameLogOff logs nothing beyond connect/disconnect transitions.
	FrameLogOff FrameLogMode = iota
	// FrameLogHeaders logs topic and payload length for every PUBLISH frame
	// sent or received.
	FrameLogHeaders
	// FrameLogFull additionally logs the payload of PUBLISH frames.
	FrameLogFull
)

// WithFrameLogging sets the frame logging verbosity, ported from the
// original client's debug-dump bitmask.
func WithFrameLogging(mode FrameLogMode) Option {
	return func(o *clientOptions) { o.FrameLogging = mode }
}
