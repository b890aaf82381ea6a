// Package resource implements the resource-update state machine: it accepts
// a server directive naming a registered resource, streams the new version
// over HTTP (or through an application-supplied byte source), verifies its
// MD5, and reports the outcome.
package resource

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"log/slog"
	"net/url"

	"github.com/orange-lo/iotsoftbox-go/registry"
)

// State is one stage of a single in-progress resource download. States are
// explicit rather than derived from a pair of flags, so the engine's
// current stage is always unambiguous.
type State int

const (
	StateIdle State = iota
	StateAnnounced
	StateConnecting
	StateStreaming
	StateFinalising
	StateDoneOK
	StateDoneFail
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAnnounced:
		return "announced"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateFinalising:
		return "finalising"
	case StateDoneOK:
		return "done-ok"
	case StateDoneFail:
		return "done-fail"
	default:
		return "unknown"
	}
}

// inProgress is the single update record live between Start and a terminal
// Tick. cid == 0 (no record at all, e.rec nil) means idle.
type inProgress struct {
	cid        int
	handle     int
	descriptor *registry.ResourceDescriptor

	oldVersion, newVersion string
	uri                    string
	size                   int64
	offset                 int64

	expectedMD5 [16]byte
	hasher      hash.Hash

	retryCount int
	state      State

	fetcher *httpFetcher
}

// Engine runs at most one resource download at a time, driven by repeated
// calls to Tick from the session controller's pipeline tick.
type Engine struct {
	opts engineOptions
	rec  *inProgress
}

// New returns an idle engine.
func New(opts ...Option) *Engine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{opts: o}
}

// InProgress reports whether an update is currently running.
func (e *Engine) InProgress() bool { return e.rec != nil }

// State returns the current state, StateIdle when nothing is in progress.
func (e *Engine) State() State {
	if e.rec == nil {
		return StateIdle
	}
	return e.rec.state
}

// Start validates an inbound resource-update directive and, if accepted,
// begins a new download. It returns the acknowledgement result code to
// publish immediately; Tick drives the rest of the state machine.
func (e *Engine) Start(handle int, d *registry.ResourceDescriptor, cid int, oldVersion, newVersion, uri string, size int64, md5Hex string) (Result, error) {
	if e.rec != nil {
		return ResultBusy, ErrBusy
	}
	if d == nil {
		return ResultNotFound, ErrNotFound
	}
	if oldVersion != d.Version {
		return ResultWrongVersion, ErrWrongVersion
	}
	if newVersion == d.Version {
		return ResultSameVersion, ErrSameVersion
	}
	if _, err := url.ParseRequestURI(uri); err != nil {
		return ResultBadURI, fmt.Errorf("%w: %v", ErrBadURI, err)
	}
	expected, err := decodeMD5(md5Hex)
	if err != nil {
		return ResultBadURI, fmt.Errorf("%w: %v", ErrBadURI, err)
	}
	e.rec = &inProgress{
		cid:         cid,
		handle:      handle,
		descriptor:  d,
		oldVersion:  oldVersion,
		newVersion:  newVersion,
		uri:         uri,
		size:        size,
		expectedMD5: expected,
		hasher:      md5.New(),
		state:       StateAnnounced,
	}
	return ResultOKFound, nil
}

func decodeMD5(hexStr string) ([16]byte, error) {
	var out [16]byte
	raw, err := hex.DecodeString(hexStr)
	if err != nil || len(raw) != len(out) {
		return out, fmt.Errorf("resource: malformed md5 %q", hexStr)
	}
	copy(out[:], raw)
	return out, nil
}

// Tick advances the state machine by one step. It returns true exactly once
// per download, the iteration that reaches a terminal state (success or
// failure) and fires the descriptor's notify callback; the caller should
// treat that as "resource table changed, re-publish it".
func (e *Engine) Tick(ctx context.Context) bool {
	r := e.rec
	if r == nil {
		return false
	}
	switch r.state {
	case StateAnnounced:
		return e.openSource(ctx, r)
	case StateStreaming:
		return e.streamChunk(r)
	default:
		return false
	}
}

func (e *Engine) openSource(ctx context.Context, r *inProgress) bool {
	r.state = StateConnecting
	if r.descriptor.GetChunk != nil {
		r.state = StateStreaming
		return false
	}
	f := &httpFetcher{client: e.opts.httpClient, uri: r.uri}
	if err := f.open(ctx, r.offset); err != nil {
		e.opts.log.Warn("resource: open failed", slog.String("uri", r.uri), slog.Any("err", err))
		return e.retry(r)
	}
	r.fetcher = f
	r.state = StateStreaming
	return false
}

func (e *Engine) streamChunk(r *inProgress) bool {
	remaining := r.size - r.offset
	if remaining <= 0 {
		return e.finalize(r)
	}
	bufSize := e.opts.chunkSize
	if int64(bufSize) > remaining {
		bufSize = int(remaining)
	}
	buf := make([]byte, bufSize)

	var n int
	var err error
	if r.descriptor.GetChunk != nil {
		n = r.descriptor.GetChunk(r.offset, buf)
		if n < 0 {
			err = fmt.Errorf("resource: chunk source reported transport error")
			n = 0
		}
	} else {
		n, err = r.fetcher.chunk(buf)
	}

	if err != nil {
		e.opts.log.Warn("resource: read failed", slog.String("uri", r.uri), slog.Any("err", err))
		return e.retry(r)
	}
	if n == 0 {
		return e.retry(r)
	}

	r.hasher.Write(buf[:n])
	r.offset += int64(n)
	r.retryCount = 0

	if r.offset >= r.size {
		return e.finalize(r)
	}
	return false
}

func (e *Engine) retry(r *inProgress) bool {
	if r.fetcher != nil {
		r.fetcher.close()
		r.fetcher = nil
	}
	r.retryCount++
	if r.retryCount >= e.opts.maxRetries {
		return e.terminal(r, false, StateDoneFail)
	}
	r.state = StateAnnounced
	return false
}

func (e *Engine) finalize(r *inProgress) bool {
	r.state = StateFinalising
	sum := r.hasher.Sum(nil)
	success := bytes.Equal(sum, r.expectedMD5[:])
	state := StateDoneFail
	if success {
		state = StateDoneOK
	}
	return e.terminal(r, success, state)
}

// terminal closes any open source, fires the notify callback with the
// protocol-level 1 (success) or 2 (failure) code, applies the version bump
// on success, and resets the engine to idle.
func (e *Engine) terminal(r *inProgress, success bool, state State) bool {
	r.state = state
	if r.fetcher != nil {
		r.fetcher.close()
	}
	notifyCode := 2
	if success {
		notifyCode = 1
		r.descriptor.Version = r.newVersion
	}
	if r.descriptor.Notify != nil {
		r.descriptor.Notify(notifyCode, r.newVersion)
	}
	e.rec = nil
	return true
}
