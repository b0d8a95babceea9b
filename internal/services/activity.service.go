package services

import (
	"context"

	"github.com/nimasrn/cash-ledger/internal/model"
)

type ActivityRepository interface {
	Create(ctx context.Context, a *model.Activity) (bool, error)
	List(ctx context.Context, f model.ActivityFilter) ([]*model.Activity, error)
}

type ActivityService struct {
	repo ActivityRepository
}

func NewActivityService(repo ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// Record stores the activity line for an event. Recording the same event
// twice is a no-op and reports false.
func (s *ActivityService) Record(ctx context.Context, ev *model.LedgerEvent) (bool, error) {
	if ev == nil || ev.ID == "" || ev.OwnerID == "" {
		return false, model.NewValidationError("event", "event id and owner are required")
	}
	created, err := s.repo.Create(ctx, ev.ToActivity())
	if err != nil {
		return false, storeErr("record activity", err)
	}
	return created, nil
}

func (s *ActivityService) List(ctx context.Context, f model.ActivityFilter) ([]*model.Activity, error) {
	if f.OwnerID == "" {
		return nil, ErrUnauthenticated
	}
	items, err := s.repo.List(ctx, f.Clamp())
	if err != nil {
		return nil, storeErr("list activity", err)
	}
	return items, nil
}
