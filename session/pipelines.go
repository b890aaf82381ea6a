package session

import (
	"context"
	"log/slog"

	"github.com/orange-lo/iotsoftbox-go/pubqueue"
	"github.com/orange-lo/iotsoftbox-go/registry"
)

// runPipelines drains every dirty attachment into the publish queue, in the
// fixed order config, status, data, resources, then ticks the resource
// engine once. It never talks to the transport directly; drainQueue is the
// sole publisher.
func (c *Controller) runPipelines(ctx context.Context) {
	c.pipelineConfig()
	c.pipelineStatus()
	c.pipelineData()
	c.pipelineResources()
	if c.engine.Tick(ctx) {
		c.resourceTableDirty = true
	}
}

func (c *Controller) pipelineConfig() {
	p := c.reg.Params
	if p.Collection == nil {
		return
	}

	if p.Pending.Active {
		payload, err := encodeConfigReply(p.Pending.CID, p.Collection, p.Pending.Accepted)
		if err != nil {
			c.log.Warn("encode config reply failed", slog.Any("err", err))
			return
		}
		entry := pubqueue.Entry{
			Kind:    pubqueue.KindConfig,
			Payload: []byte(payload),
			OnResult: func(ok bool) {
				if ok {
					p.Pending.Active = false
					c.onFirstConfigPublished()
				}
			},
		}
		if err := c.queue.Put(entry); err != nil {
			c.log.Warn("config reply queue full, retrying next iteration", slog.Any("err", err))
		}
		return
	}

	if !p.Dirty {
		return
	}
	payload, err := encodeConfigReply(0, p.Collection, nil)
	if err != nil {
		c.log.Warn("encode config dump failed", slog.Any("err", err))
		return
	}
	entry := pubqueue.Entry{
		Kind:    pubqueue.KindConfig,
		Payload: []byte(payload),
		OnResult: func(ok bool) {
			if ok {
				p.Dirty = false
				c.onFirstConfigPublished()
			}
		},
	}
	if err := c.queue.Put(entry); err != nil {
		c.log.Warn("config dump queue full, retrying next iteration", slog.Any("err", err))
	}
}

// onFirstConfigPublished requests the dev/cfg/upd subscription the first
// time any config publish succeeds, matching the original's gating of the
// update subscription on the first successful dump.
func (c *Controller) onFirstConfigPublished() {
	if c.firstConfigDone {
		return
	}
	c.firstConfigDone = true
	c.reg.ConfigUpdateEnable.RequestEnable()
}

func (c *Controller) pipelineStatus() {
	c.reg.Status.Each(func(_ int, s *registry.StatusSet) {
		if !s.Dirty {
			return
		}
		payload, err := encodeStatus(s.Collection)
		if err != nil {
			c.log.Warn("encode status failed", slog.String("name", s.Name), slog.Any("err", err))
			return
		}
		entry := pubqueue.Entry{
			Kind:    pubqueue.KindStatus,
			Payload: []byte(payload),
			OnResult: func(ok bool) {
				if ok {
					s.Dirty = false
				}
			},
		}
		if err := c.queue.Put(entry); err != nil {
			c.log.Warn("status queue full, retrying next iteration", slog.String("name", s.Name), slog.Any("err", err))
		}
	})
}

func (c *Controller) pipelineData() {
	c.reg.Data.Each(func(_ int, d *registry.DataStream) {
		if !d.Dirty {
			return
		}
		payload, err := encodeData(d)
		if err != nil {
			c.log.Warn("encode data failed", slog.String("name", d.Name), slog.Any("err", err))
			return
		}
		entry := pubqueue.Entry{
			Kind:    pubqueue.KindData,
			Payload: []byte(payload),
			OnResult: func(ok bool) {
				if ok {
					d.Dirty = false
				}
			},
		}
		if err := c.queue.Put(entry); err != nil {
			c.log.Warn("data queue full, retrying next iteration", slog.String("name", d.Name), slog.Any("err", err))
		}
	})
}

func (c *Controller) pipelineResources() {
	if c.pendingResourceAck != nil {
		ack := c.pendingResourceAck
		payload := encodeResourceAck(ack.cid, ack.code)
		entry := pubqueue.Entry{
			Kind:    pubqueue.KindResourceAck,
			Payload: []byte(payload),
			OnResult: func(ok bool) {
				if ok {
					c.pendingResourceAck = nil
				}
			},
		}
		if err := c.queue.Put(entry); err != nil {
			c.log.Warn("resource ack queue full, retrying next iteration", slog.Any("err", err))
		}
	}

	if !c.resourceTableDirty {
		return
	}
	payload := encodeResourceTable(c.reg.Resources)
	entry := pubqueue.Entry{
		Kind:    pubqueue.KindResource,
		Payload: []byte(payload),
		OnResult: func(ok bool) {
			if ok {
				c.resourceTableDirty = false
			}
		},
	}
	if err := c.queue.Put(entry); err != nil {
		c.log.Warn("resource table queue full, retrying next iteration", slog.Any("err", err))
	}
}
