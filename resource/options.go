package resource

import (
	"io"
	"log/slog"
	"net/http"
	"time"
)

// defaultChunkSize is the buffer size used for each HTTP read.
const defaultChunkSize = 4096

// defaultMaxRetries matches the original's fixed retry budget.
const defaultMaxRetries = 4

type engineOptions struct {
	httpClient *http.Client
	log        *slog.Logger
	chunkSize  int
	maxRetries int
}

func defaultOptions() engineOptions {
	return engineOptions{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		chunkSize:  defaultChunkSize,
		maxRetries: defaultMaxRetries,
	}
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithHTTPClient overrides the client used for resource GET requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *engineOptions) { o.httpClient = c }
}

// WithLogger sets the structured logger used for download diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.log = l }
}

// WithChunkSize overrides the per-read buffer size.
func WithChunkSize(n int) Option {
	return func(o *engineOptions) { o.chunkSize = n }
}

// WithMaxRetries overrides the retry budget before a download fails
// terminally.
func WithMaxRetries(n int) Option {
	return func(o *engineOptions) { o.maxRetries = n }
}
