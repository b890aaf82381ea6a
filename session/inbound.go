package session

import (
	"log/slog"

	"github.com/orange-lo/iotsoftbox-go/resource"
)

// onInbound is the transport.PublishHandler registered on the client; it
// runs synchronously inside Yield, on the session goroutine.
func (c *Controller) onInbound(topic string, payload []byte) {
	switch topic {
	case topicCfgUpd:
		c.handleConfigUpdate(payload)
	case topicCmd:
		c.handleCommand(payload)
	case topicRscUpd:
		c.handleResourceUpdate(payload)
	default:
		c.log.Warn("unexpected inbound topic", slog.String("topic", topic))
	}
}

func (c *Controller) handleConfigUpdate(payload []byte) {
	d, err := decodeConfigUpdate(payload)
	if err != nil {
		c.log.Warn("decode dev/cfg/upd failed", slog.Any("err", err))
		return
	}
	if c.reg.Params.Collection == nil {
		c.log.Warn("dev/cfg/upd received with no parameter set attached")
		return
	}
	c.reg.Params.ApplyUpdate(d.CID, d.Updates)
}

// handleCommand invokes the matching command callback. A positive result is
// published inline, safe here because we are on the session thread; zero or
// negative means the application will call CommandResponse later.
func (c *Controller) handleCommand(payload []byte) {
	d, err := decodeCommand(payload)
	if err != nil {
		c.log.Warn("decode dev/cmd failed", slog.Any("err", err))
		return
	}
	cmd, ok := c.reg.Commands.Find(d.Name)
	if !ok {
		c.log.Warn("unknown command", slog.String("name", d.Name))
		return
	}
	if cmd.Callback == nil {
		return
	}
	rc := cmd.Callback(d.CID, d.Args)
	if rc <= 0 {
		return
	}
	payload2 := encodeCommandResult(d.CID, rc)
	if err := c.client.Publish(topicCmdRes, []byte(payload2), false); err != nil {
		c.log.Warn("inline command result publish failed", slog.String("name", d.Name), slog.Any("err", err))
	}
}

// handleResourceUpdate validates the directive, starts the download engine
// on success, and queues the validation acknowledgement for the next
// Resources pipeline tick (not published inline: the resource record is
// owned by the session thread, but the ack itself follows the ordinary
// dirty-flag pipeline discipline like config and status).
func (c *Controller) handleResourceUpdate(payload []byte) {
	d, err := decodeResourceUpdate(payload)
	if err != nil {
		c.log.Warn("decode dev/rsc/upd failed", slog.Any("err", err))
		return
	}

	handle, descriptor, ok := c.reg.Resources.FindHandle(d.Name)
	var result resource.Result
	if !ok {
		result = resource.ResultNotFound
	} else {
		result, err = c.engine.Start(handle, descriptor, d.CID, d.OldVersion, d.NewVersion, d.URI, d.Size, d.MD5Hex)
		if err != nil {
			c.log.Info("resource update rejected", slog.String("name", d.Name), slog.Any("err", err))
		}
	}
	c.pendingResourceAck = &resourceAck{cid: d.CID, code: int(result)}
}
