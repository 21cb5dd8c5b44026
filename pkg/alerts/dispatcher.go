package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Dispatcher fans a cycle's alerts out to every configured notifier.
type Dispatcher struct {
	notifiers []Notifier
	logger    *slog.Logger
	now       func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(notifiers []Notifier, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		logger:    logger,
		now:       time.Now,
	}
}

// Notify sends alerts to all notifiers. An empty alert list is a successful
// no-op. It returns false if any notifier failed; failures are logged as
// transport errors and never escape.
func (d *Dispatcher) Notify(ctx context.Context, alerts []model.AlertRecord) (ok bool) {
	if len(alerts) == 0 {
		return true
	}

	digest := Digest{GeneratedAt: d.now(), Alerts: alerts}
	ok = true
	for _, n := range d.notifiers {
		if err := d.send(ctx, n, digest); err != nil {
			ok = false
			d.logger.Error("send alerts failed",
				"notifier", n.Name(),
				"alerts", len(alerts),
				"error", model.NewError(model.KindTransport, n.Name(), err),
			)
			continue
		}
		d.logger.Info("alerts sent", "notifier", n.Name(), "alerts", len(alerts))
	}
	return ok
}

func (d *Dispatcher) send(ctx context.Context, n Notifier, digest Digest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panic: %v", r)
		}
	}()
	return n.Send(ctx, digest)
}
