// Package session implements the single cooperative connect/reconnect loop
// that owns the MQTT session, drives the fixed subscription table, and
// services the publish pipelines in their required order.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/orange-lo/iotsoftbox-go/pubqueue"
	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/resource"
	"github.com/orange-lo/iotsoftbox-go/transport"
)

// resourceAck is the validation-time acknowledgement awaiting publication on
// the next Resources pipeline tick.
type resourceAck struct {
	cid  int
	code int
}

// Controller runs the session thread: connect, subscribe, publish, yield,
// repeat. It is not safe for concurrent use of its Run/Cycle/Stop methods
// from more than one goroutine; application code interacts with it only
// through the registry, the publish queue, and Stop.
type Controller struct {
	opts controllerOptions
	log  *slog.Logger

	client *transport.Client
	addr   string

	reg    *registry.Registry
	queue  *pubqueue.Queue
	engine *resource.Engine

	firstConfigDone     bool
	resourceTableDirty  bool
	pendingResourceAck  *resourceAck

	running atomic.Bool
	stopMu  sync.Mutex
	stopCh  chan struct{}
}

// New builds a Controller around an already-configured (but not yet
// connected) transport.Client. addr is the broker host:port Connect dials
// on every (re)connect attempt.
func New(client *transport.Client, addr string, reg *registry.Registry, queue *pubqueue.Queue, engine *resource.Engine, opts ...Option) *Controller {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Controller{
		opts:   o,
		log:    o.log,
		client: client,
		addr:   addr,
		reg:    reg,
		queue:  queue,
		engine: engine,
	}
	client.SetPublishHandler(c.onInbound)
	return c
}

// Run executes the reconnect loop described in the controller's design
// until ctx is cancelled or Stop is called, reporting lifecycle transitions
// through onState. It returns nil on a clean Stop, or ctx.Err() otherwise.
func (c *Controller) Run(ctx context.Context, onState StateCallback) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer c.running.Store(false)

	c.stopMu.Lock()
	c.stopCh = make(chan struct{})
	stopCh := c.stopCh
	c.stopMu.Unlock()

	for {
		if stopped(stopCh) || ctx.Err() != nil {
			notify(onState, StateDown)
			return ctx.Err()
		}

		c.resetForReconnect()
		notify(onState, StateConnecting)

		if err := c.connectWithBackoff(ctx, stopCh); err != nil {
			notify(onState, StateDown)
			if stopped(stopCh) && ctx.Err() == nil {
				return nil
			}
			return err
		}

		notify(onState, StateConnected)
		c.reg.MarkAllDirty()
		c.resourceTableDirty = true

		c.runConnectedLoop(ctx, stopCh)

		c.client.Disconnect()
		notify(onState, StateDisconnected)

		if stopped(stopCh) || ctx.Err() != nil {
			notify(onState, StateDown)
			return ctx.Err()
		}

		select {
		case <-stopCh:
			notify(onState, StateDown)
			return nil
		case <-ctx.Done():
			notify(onState, StateDown)
			return ctx.Err()
		case <-time.After(c.opts.reconnectWait):
		}
	}
}

// Stop signals Run's loop to exit at the next iteration boundary. It does
// not preempt an in-flight connect attempt or yield call.
func (c *Controller) Stop() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	if c.stopCh == nil {
		return
	}
	select {
	case <-c.stopCh:
	default:
		close(c.stopCh)
	}
}

// Connect dials and completes the MQTT handshake if not already connected,
// marking every attachment dirty so the next pipeline pass republishes the
// full state, matching a fresh session's first-connect dump. It is a no-op
// if already connected.
func (c *Controller) Connect(ctx context.Context) error {
	if c.client.Connected() {
		return nil
	}
	if _, err := c.client.Connect(ctx, c.addr); err != nil {
		return err
	}
	c.reg.MarkAllDirty()
	c.resourceTableDirty = true
	c.firstConfigDone = false
	return nil
}

// Disconnect closes the MQTT session if connected.
func (c *Controller) Disconnect() error {
	return c.client.Disconnect()
}

// MarkResourcesDirty schedules a full resource-table republish on the next
// pipeline pass.
func (c *Controller) MarkResourcesDirty() {
	c.resourceTableDirty = true
}

// Cycle performs one iteration of the loop body for a host that drives its
// own scheduling instead of calling Run. It connects first if necessary.
func (c *Controller) Cycle(ctx context.Context, timeout time.Duration) error {
	if err := c.Connect(ctx); err != nil {
		return err
	}

	c.runPipelines(ctx)
	c.drainQueue()

	var slots [subCount]subscriptionSlot
	c.fillSubscriptionSlots(&slots)

	if err := c.client.Yield(timeout); err != nil {
		if errors.Is(err, transport.ErrYieldTimeout) {
			reconcileSubscriptions(ctx, c.client, slots, c.log)
			return nil
		}
		c.client.Disconnect()
		return err
	}

	reconcileSubscriptions(ctx, c.client, slots, c.log)
	return nil
}

func (c *Controller) resetForReconnect() {
	c.fillSubscriptionSlotsReset()
	c.queue.Purge()
	c.firstConfigDone = false
}

// fillSubscriptionSlotsReset drops every subscription's acknowledged state
// back to "not subscribed" on a fresh connect, since a new MQTT session has
// no memory of prior SUBSCRIBEs. The config-update flag also drops its
// desired state: it is re-armed only after the next first-connect dump.
func (c *Controller) fillSubscriptionSlotsReset() {
	c.reg.ConfigUpdateEnable.Reset()
	c.reg.CommandsEnable.ResetCurrent()
	c.reg.ResourcesEnable.ResetCurrent()
}

func (c *Controller) fillSubscriptionSlots(slots *[subCount]subscriptionSlot) {
	slots[subConfigUpdate] = subscriptionSlot{topic: topicCfgUpd, flag: &c.reg.ConfigUpdateEnable}
	slots[subCommand] = subscriptionSlot{topic: topicCmd, flag: &c.reg.CommandsEnable}
	slots[subResourceUpdate] = subscriptionSlot{topic: topicRscUpd, flag: &c.reg.ResourcesEnable}
}

func (c *Controller) connectWithBackoff(ctx context.Context, stopCh chan struct{}) error {
	b := backoff.WithContext(backoff.NewConstantBackOff(c.opts.reconnectWait), ctx)
	operation := func() error {
		if stopped(stopCh) {
			return backoff.Permanent(context.Canceled)
		}
		if _, err := c.client.Connect(ctx, c.addr); err != nil {
			c.log.Warn("connect failed, retrying", slog.String("addr", c.addr), slog.Any("err", err))
			return err
		}
		return nil
	}
	return backoff.Retry(operation, b)
}

func (c *Controller) runConnectedLoop(ctx context.Context, stopCh chan struct{}) {
	var slots [subCount]subscriptionSlot
	c.fillSubscriptionSlots(&slots)

	for c.client.Connected() {
		if stopped(stopCh) || ctx.Err() != nil {
			return
		}

		c.runPipelines(ctx)
		c.drainQueue()

		if err := c.client.Yield(c.opts.yieldTimeout); err != nil {
			if errors.Is(err, transport.ErrYieldTimeout) {
				reconcileSubscriptions(ctx, c.client, slots, c.log)
				continue
			}
			c.log.Warn("yield failed, reconnecting", slog.Any("err", err))
			return
		}

		reconcileSubscriptions(ctx, c.client, slots, c.log)
	}
}

func (c *Controller) drainQueue() {
	for {
		e, ok := c.queue.Get()
		if !ok {
			return
		}
		c.publishEntry(e)
	}
}

func (c *Controller) publishEntry(e pubqueue.Entry) {
	topic := e.Topic
	switch e.Kind {
	case pubqueue.KindStatus:
		topic = topicInfo
	case pubqueue.KindData:
		topic = topicData
	case pubqueue.KindConfig:
		topic = topicCfg
	case pubqueue.KindResource:
		topic = topicRsc
	case pubqueue.KindResourceAck:
		topic = topicRscUpdRes
	case pubqueue.KindCommandResponse:
		topic = topicCmdRes
	}
	err := c.client.Publish(topic, e.Payload, false)
	if err != nil {
		c.log.Warn("publish failed, will retry next iteration", slog.String("topic", topic), slog.Any("err", err))
	}
	if e.OnResult != nil {
		e.OnResult(err == nil)
	}
}

func notify(cb StateCallback, s State) {
	if cb != nil {
		cb(s)
	}
}

func stopped(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
