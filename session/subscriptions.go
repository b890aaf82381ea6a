package session

import (
	"context"
	"log/slog"

	"github.com/orange-lo/iotsoftbox-go/registry"
	"github.com/orange-lo/iotsoftbox-go/transport"
)

// subscriptionSlot is one entry of the fixed 3-row subscription table.
type subscriptionSlot struct {
	topic string
	flag  *registry.EnableFlag
}

// reconcileSubscriptions walks the fixed subscription table, issuing a
// SUBSCRIBE or UNSUBSCRIBE for any slot whose enable flag disagrees with
// the broker's acknowledged state. A rejection leaves the flag in its
// want-* state; the caller retries on the next iteration.
func reconcileSubscriptions(ctx context.Context, client *transport.Client, slots [subCount]subscriptionSlot, log *slog.Logger) {
	for _, s := range slots {
		switch {
		case s.flag.NeedsSubscribe():
			if err := client.Subscribe(ctx, s.topic); err != nil {
				log.Warn("subscribe failed, will retry", slog.String("topic", s.topic), slog.Any("err", err))
				continue
			}
			s.flag.ConfirmSubscribed()
		case s.flag.NeedsUnsubscribe():
			if err := client.Unsubscribe(ctx, s.topic); err != nil {
				log.Warn("unsubscribe failed, will retry", slog.String("topic", s.topic), slog.Any("err", err))
				continue
			}
			s.flag.ConfirmUnsubscribed()
		}
	}
}
