package repository

import (
	"context"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/pg"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm/clause"
)

type ActivityRepository struct {
	*pg.DB
}

func NewActivityRepository(db *pg.DB) *ActivityRepository {
	return &ActivityRepository{
		db,
	}
}

// Create inserts the entry unless one with the same id exists. It reports
// whether a row was written.
func (r *ActivityRepository) Create(ctx context.Context, a *model.Activity) (bool, error) {
	entity := toActivityEntity(a)

	res := r.Write(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(entity)
	if res.Error != nil {
		return false, pkgerrors.Wrap(res.Error, "create activity")
	}
	return res.RowsAffected > 0, nil
}

func (r *ActivityRepository) List(ctx context.Context, f model.ActivityFilter) ([]*model.Activity, error) {
	f = f.Clamp()
	q := r.Read(ctx).Where("owner_id = ?", f.OwnerID)
	if f.CustomerID != "" {
		q = q.Where("customer_id = ?", f.CustomerID)
	}

	var entities []*ActivityEntity
	if err := q.Order("occurred_at DESC").Order("id DESC").Limit(f.Limit).Find(&entities).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "list activity")
	}

	out := make([]*model.Activity, len(entities))
	for i, e := range entities {
		out[i] = toActivityModel(e)
	}
	return out, nil
}
