package repository

import (
	"context"
	"errors"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/pg"
	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository struct {
	*pg.DB
}

func NewCustomerRepository(db *pg.DB) *CustomerRepository {
	return &CustomerRepository{
		db,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) (*model.Customer, error) {
	entity := toCustomerEntity(c)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "create customer")
	}

	return toCustomerModel(entity), nil
}

// ListByOwner returns the owner's customers, newest first.
func (r *CustomerRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Customer, error) {
	var entities []*CustomerEntity
	err := r.Read(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Order("id").
		Find(&entities).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list customers")
	}
	return toCustomerModels(entities), nil
}

// FindOwned loads a customer only if it belongs to ownerID. Someone else's
// customer is reported exactly like a missing one.
func (r *CustomerRepository) FindOwned(ctx context.Context, ownerID, id string) (*model.Customer, error) {
	return r.findOwned(r.Read(ctx), ownerID, id)
}

// LockOwned is FindOwned on the write handle with a row lock of the given
// strength ("SHARE" or "UPDATE"). Meant to be called inside WithinTransaction.
func (r *CustomerRepository) LockOwned(ctx context.Context, ownerID, id, strength string) (*model.Customer, error) {
	q := r.Write(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: strength})
	}
	return r.findOwned(q, ownerID, id)
}

func (r *CustomerRepository) findOwned(q *gorm.DB, ownerID, id string) (*model.Customer, error) {
	var entity CustomerEntity
	err := q.Where("id = ? AND owner_id = ?", id, ownerID).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, pkgerrors.Wrap(err, "find customer")
	}
	return toCustomerModel(&entity), nil
}

// DeleteOwned removes the customer row. Transactions are not touched here;
// callers delete them first within the same transaction.
func (r *CustomerRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	res := r.Write(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Delete(&CustomerEntity{})
	if res.Error != nil {
		return pkgerrors.Wrap(res.Error, "delete customer")
	}
	if res.RowsAffected == 0 {
		return ErrCustomerNotFound
	}
	return nil
}
