package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/nimasrn/cash-ledger/pkg/prom"
)

// EventPublisher ships ledger events to whoever keeps the activity log.
type EventPublisher interface {
	Publish(ctx context.Context, ev *model.LedgerEvent) error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *model.LedgerEvent) error { return nil }

// publish runs after the ledger write committed. A failure is logged and
// counted but never undoes or fails the write.
func publish(ctx context.Context, p EventPublisher, ev *model.LedgerEvent) {
	if p == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
		prom.IncEventPublishFailed(string(ev.Type))
		logger.Warn("failed to publish ledger event", "event", ev.Type, "event_id", ev.ID, "error", err)
	}
}
