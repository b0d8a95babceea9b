package processor

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/queue"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/nimasrn/cash-ledger/pkg/prom"
)

type ActivityRecorder interface {
	Record(ctx context.Context, ev *model.LedgerEvent) (bool, error)
}

// ActivityProcessor turns ledger events into activity log entries.
type ActivityProcessor struct {
	recorder    ActivityRecorder
	idempotency *IdempotencyService
}

func NewActivityProcessor(recorder ActivityRecorder, idempotency *IdempotencyService) *ActivityProcessor {
	return &ActivityProcessor{
		recorder:    recorder,
		idempotency: idempotency,
	}
}

func (p *ActivityProcessor) GetType() string {
	return "activity"
}

// Process records one event. A nil return acks the stream entry.
func (p *ActivityProcessor) Process(ctx context.Context, msg *queue.Message) error {
	ev, err := queue.DecodeEvent(msg)
	if err != nil {
		prom.IncEventProcessed("unknown", "invalid")
		logger.Error("failed to decode ledger event", "message_id", msg.ID, "error", err)
		// left pending so the queue dead-letters it after the last retry
		return err
	}
	event := string(ev.Type)

	pc, err := p.idempotency.AcquireProcessingLock(ctx, ev.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessed):
			prom.IncEventProcessed(event, "duplicate")
			logger.Debug("event already processed, skipping", "event_id", ev.ID)
			return nil
		case errors.Is(err, ErrMaxRetriesExceeded):
			prom.IncEventProcessed(event, "dropped")
			logger.Error("giving up on event", "event_id", ev.ID, "error", err)
			return nil
		default:
			logger.Info("event is being processed elsewhere, will retry", "event_id", ev.ID, "error", err)
			return err
		}
	}
	defer func() {
		_ = p.idempotency.ReleaseLock(ctx, pc)
	}()

	created, err := p.recorder.Record(ctx, ev)
	if err != nil {
		prom.IncEventProcessed(event, "failed")
		if markErr := p.idempotency.MarkFailure(ctx, pc, err); markErr != nil {
			logger.Error("failed to mark failure", "event_id", ev.ID, "error", markErr)
		}
		return err
	}

	if err := p.idempotency.MarkSuccess(ctx, pc); err != nil {
		logger.Error("failed to mark success", "event_id", ev.ID, "error", err)
	}

	status := "recorded"
	if !created {
		status = "duplicate"
	}
	prom.IncEventProcessed(event, status)
	if !ev.OccurredAt.IsZero() {
		prom.AddProcessingDuration(time.Since(ev.OccurredAt).Seconds(), event)
	}
	logger.Info("activity recorded",
		"event_id", ev.ID,
		"event", event,
		"owner_id", ev.OwnerID,
		"retry_count", pc.RetryCount,
		"created", created)
	return nil
}
