package alerts

import (
	"context"
	"time"

	"github.com/ogulcanaydogan/campaign-refresh/pkg/model"
)

// Digest is the batch of alerts produced by one refresh cycle.
type Digest struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Alerts      []model.AlertRecord `json:"alerts"`
}

// HighPriority counts the alerts marked High.
func (d Digest) HighPriority() int {
	n := 0
	for _, a := range d.Alerts {
		if a.Priority == model.PriorityHigh {
			n++
		}
	}
	return n
}

// Notifier sends alert digests to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a digest. Implementations must be safe for concurrent use.
	Send(ctx context.Context, digest Digest) error
}
