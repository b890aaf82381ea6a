// Package loclient is the public facade: the surface an application links
// against to declare its attachments, drive the session thread, and publish
// or receive device data, wrapping the registry, publish queue, resource
// engine and session controller behind a single handle.
package loclient

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orange-lo/iotsoftbox-go/pubqueue"
	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/resource"
	"github.com/orange-lo/iotsoftbox-go/session"
	"github.com/orange-lo/iotsoftbox-go/transport"
	"github.com/orange-lo/iotsoftbox-go/value"
)

// maxDeviceIDLen and maxNamespaceLen bound SetDeviceID/SetNamespace's
// copies, mirroring the original's fixed on-stack buffers.
const (
	maxDeviceIDLen  = 64
	maxNamespaceLen = 32
)

const defaultUsername = "json+device"

// Client is the device's single entry point: one Client models one device
// identity connected to one broker.
type Client struct {
	opts clientOptions
	log  *slog.Logger
	addr string

	deviceID  string
	namespace string

	reg    *registry.Registry
	queue  *pubqueue.Queue
	engine *resource.Engine

	mu         sync.Mutex
	transport  *transport.Client
	controller *session.Controller

	lastState atomic.Int32
	runWG     sync.WaitGroup
	runCancel context.CancelFunc
}

// New constructs a Client bound to addr (broker host:port). It validates
// option values (an API key, if supplied, must be well-formed) but does not
// touch the network.
func New(addr string, opts ...Option) (*Client, error) {
	o := defaultClientOptions()
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}
	return &Client{
		opts: o,
		log:  o.log,
		addr: addr,
		reg:  registry.NewRegistry(o.caps),
	}, nil
}

// SetDeviceID sets the device identifier used in the MQTT client id, bounded
// to maxDeviceIDLen bytes. Required before Connect/Run/Cycle.
func (c *Client) SetDeviceID(id string) {
	c.deviceID = bound(id, maxDeviceIDLen)
}

// SetNamespace sets the LiveObjects namespace used in the MQTT client id,
// bounded to maxNamespaceLen bytes. Required before Connect/Run/Cycle.
func (c *Client) SetNamespace(ns string) {
	c.namespace = bound(ns, maxNamespaceLen)
}

func bound(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// SetDbgLevel adjusts the minimum severity logged, when the Client's logger
// was built internally (not supplied via WithLogger).
func (c *Client) SetDbgLevel(level slog.Level) {
	if c.opts.level != nil {
		c.opts.level.Set(level)
	}
}

// SetDbgDump adjusts frame-logging verbosity at runtime, ported from the
// original's debug-dump bitmask.
func (c *Client) SetDbgDump(mode transport.FrameLogMode) {
	c.opts.frameLog = mode
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != nil {
		c.transport.SetFrameLogging(mode)
	}
}

// AttachCfgParams registers the device's single configuration parameter
// collection. validator may be nil to accept every update unconditionally.
func (c *Client) AttachCfgParams(coll *value.Collection, validator registry.Validator) {
	c.reg.Params.Collection = coll
	c.reg.Params.Validator = validator
}

// AttachStatus registers a named status collection, returning its handle.
func (c *Client) AttachStatus(name string, coll *value.Collection) (int, error) {
	return c.reg.Status.Attach(name, coll)
}

// AttachData registers a named data-stream collection, returning its
// handle. Use DataStream to configure the stream id/model/tags/geo-fix
// before the first PushData.
func (c *Client) AttachData(name string, coll *value.Collection) (int, error) {
	return c.reg.Data.Attach(name, coll)
}

// DataStream returns the attached data stream at handle, for stream-id and
// metadata configuration.
func (c *Client) DataStream(handle int) (*registry.DataStream, error) {
	return c.reg.Data.Get(handle)
}

// AttachCommand registers a named command callback, returning its handle.
func (c *Client) AttachCommand(name string, cb registry.CommandCallback) (int, error) {
	return c.reg.Commands.Attach(name, cb)
}

// AttachResource registers a named updatable resource at its current
// version, returning its handle. getChunk may be nil to use the built-in
// HTTP range-GET fetcher.
func (c *Client) AttachResource(name, version string, notify registry.ResourceNotify, getChunk registry.ResourceDataChunk) (int, error) {
	return c.reg.Resources.Attach(name, version, notify, getChunk)
}

// PushCfgParams marks the parameter set dirty for a full republish on the
// next pipeline pass.
func (c *Client) PushCfgParams() error {
	if c.reg.Params.Collection == nil {
		return ErrParamsNotAttached
	}
	c.reg.Params.MarkDirty()
	return nil
}

// PushStatus marks the status set at handle dirty for republish.
func (c *Client) PushStatus(handle int) error {
	s, err := c.reg.Status.Get(handle)
	if err != nil {
		return err
	}
	s.MarkDirty()
	return nil
}

// PushData marks the data stream at handle dirty for republish.
func (c *Client) PushData(handle int) error {
	d, err := c.reg.Data.Get(handle)
	if err != nil {
		return err
	}
	d.MarkDirty()
	return nil
}

// PushResources marks the resource table dirty for a full republish.
func (c *Client) PushResources() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller == nil {
		return ErrIdentityRequired
	}
	c.controller.MarkResourcesDirty()
	return nil
}

// ControlCommands toggles the dev/cmd subscription.
func (c *Client) ControlCommands(enable bool) {
	if enable {
		c.reg.CommandsEnable.RequestEnable()
	} else {
		c.reg.CommandsEnable.RequestDisable()
	}
}

// ControlResources toggles the dev/rsc/upd subscription.
func (c *Client) ControlResources(enable bool) {
	if enable {
		c.reg.ResourcesEnable.RequestEnable()
	} else {
		c.reg.ResourcesEnable.RequestDisable()
	}
}

// CommandResponse publishes a deferred command result: the command
// callback returned 0 or negative, and the application now supplies the
// outcome out of band. values may be nil.
func (c *Client) CommandResponse(cid, result int, values *value.Collection) error {
	payload, err := encodeCommandResponse(cid, result, values)
	if err != nil {
		return err
	}
	return c.enqueue(pubqueue.Entry{Kind: pubqueue.KindCommandResponse, Payload: []byte(payload)})
}

func encodeCommandResponse(cid, result int, values *value.Collection) (string, error) {
	if values == nil {
		return fmt.Sprintf(`{"cid":%d,"res":%d}`, cid, result), nil
	}
	vals, err := value.EncodeCollection(values)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`{"cid":%d,"res":%d,"val":%s}`, cid, result, vals), nil
}

// Publish enqueues an ad-hoc publish to an arbitrary topic, outside the
// fixed attachment pipelines.
func (c *Client) Publish(topic string, payload []byte) error {
	return c.enqueue(pubqueue.Entry{Kind: pubqueue.KindUserTopic, Topic: topic, Payload: payload})
}

func (c *Client) enqueue(e pubqueue.Entry) error {
	c.mu.Lock()
	q := c.queue
	c.mu.Unlock()
	if q == nil {
		return ErrIdentityRequired
	}
	return q.Put(e)
}

// ensureController lazily builds the transport client and session
// controller the first time identity is complete, so SetDeviceID/
// SetNamespace/attach calls can happen in any order before the first
// connect.
func (c *Client) ensureController() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		return nil
	}
	if c.deviceID == "" || c.namespace == "" {
		return ErrIdentityRequired
	}

	clientID := fmt.Sprintf("urn:lo:nsid:%s:%s", c.namespace, c.deviceID)
	tOpts := []transport.Option{
		transport.WithLogger(c.log),
		transport.WithKeepAlive(c.opts.keepAlive),
		transport.WithFrameLogging(c.opts.frameLog),
	}
	if c.opts.password != "" {
		tOpts = append(tOpts, transport.WithCredentials(defaultUsername, c.opts.password))
	}
	if c.opts.tlsConfig != nil {
		tOpts = append(tOpts, transport.WithTLSConfig(c.opts.tlsConfig))
	}

	c.transport = transport.Dial(c.addr, clientID, tOpts...)
	c.queue = pubqueue.New(c.opts.queueCap)
	c.engine = resource.New(resource.WithLogger(c.log))
	c.controller = session.New(c.transport, c.addr, c.reg, c.queue, c.engine,
		session.WithLogger(c.log),
		session.WithReconnectWait(c.opts.reconnect),
		session.WithYieldTimeout(c.opts.yieldWindow),
	)
	return nil
}

// Connect dials and completes the MQTT handshake, if not already connected.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.ensureController(); err != nil {
		return err
	}
	return c.controller.Connect(ctx)
}

// Disconnect closes the MQTT session, if connected.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	ctrl := c.controller
	c.mu.Unlock()
	if ctrl == nil {
		return nil
	}
	return ctrl.Disconnect()
}

// Cycle performs one iteration of connect/publish/yield/subscribe for a
// host that drives its own scheduling instead of calling Run.
func (c *Client) Cycle(ctx context.Context, timeout time.Duration) error {
	if err := c.ensureController(); err != nil {
		return err
	}
	return c.controller.Cycle(ctx, timeout)
}

// Run executes the full reconnect loop until ctx is cancelled or Stop is
// called, reporting lifecycle transitions through onState.
func (c *Client) Run(ctx context.Context, onState session.StateCallback) error {
	if err := c.ensureController(); err != nil {
		return err
	}
	return c.controller.Run(ctx, func(s session.State) {
		c.lastState.Store(int32(s))
		if onState != nil {
			onState(s)
		}
	})
}

// Stop signals a running Run (whether called directly or via ThreadStart)
// to exit at the next loop boundary.
func (c *Client) Stop() {
	c.mu.Lock()
	ctrl := c.controller
	cancel := c.runCancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if ctrl != nil {
		ctrl.Stop()
	}
	c.runWG.Wait()
}

// ThreadStart runs the reconnect loop on a background goroutine, matching
// the original's thread_start/thread_state pair for hosts that want the
// session managed for them.
func (c *Client) ThreadStart(onState session.StateCallback) error {
	if err := c.ensureController(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.runCancel = cancel
	c.mu.Unlock()

	c.runWG.Add(1)
	go func() {
		defer c.runWG.Done()
		c.controller.Run(ctx, func(s session.State) {
			c.lastState.Store(int32(s))
			if onState != nil {
				onState(s)
			}
		})
	}()
	return nil
}

// ThreadState returns the most recent lifecycle state reported by Run, or
// StateDown if Run/ThreadStart has never been called.
func (c *Client) ThreadState() session.State {
	return session.State(c.lastState.Load())
}
