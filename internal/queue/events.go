package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nimasrn/cash-ledger/internal/model"
)

// EventPublisher writes ledger events to a stream for the activity
// processor.
type EventPublisher struct {
	queue *Queue
}

func NewEventPublisher(q *Queue) *EventPublisher {
	return &EventPublisher{queue: q}
}

func (p *EventPublisher) Publish(ctx context.Context, ev *model.LedgerEvent) error {
	_, err := p.queue.PublishJSON(ctx, ev, map[string]string{
		"event":    string(ev.Type),
		"event_id": ev.ID,
	})
	return err
}

// DecodeEvent reads the ledger event carried by msg.
func DecodeEvent(msg *Message) (*model.LedgerEvent, error) {
	var ev model.LedgerEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil {
		return nil, fmt.Errorf("decode ledger event %s: %w", msg.ID, err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("decode ledger event %s: missing id or type", msg.ID)
	}
	return &ev, nil
}
