package repository

import (
	"context"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/pg"
	pkgerrors "github.com/pkg/errors"
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, pkgerrors.Wrap(err, "create transaction")
	}

	return toTransactionModel(entity), nil
}

// ListByCustomer returns a customer's transactions, latest date first.
func (r *TransactionRepository) ListByCustomer(ctx context.Context, ownerID, customerID string) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("customer_id = ? AND owner_id = ?", customerID, ownerID).
		Order("date DESC").
		Order("created_at DESC").
		Find(&entities).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list transactions by customer")
	}
	return toTransactionModels(entities), nil
}

// ListByOwner returns every transaction of the owner across customers.
func (r *TransactionRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error) {
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("owner_id = ?", ownerID).
		Find(&entities).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list transactions by owner")
	}
	return toTransactionModels(entities), nil
}

func (r *TransactionRepository) DeleteByCustomer(ctx context.Context, ownerID, customerID string) (int64, error) {
	res := r.Write(ctx).
		Where("customer_id = ? AND owner_id = ?", customerID, ownerID).
		Delete(&TransactionEntity{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(res.Error, "delete transactions")
	}
	return res.RowsAffected, nil
}
