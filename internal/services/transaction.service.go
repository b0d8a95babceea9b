package services

import (
	"context"
	"errors"
	"time"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/repository"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/nimasrn/cash-ledger/pkg/prom"
)

type TransactionService struct {
	customers    CustomerRepository
	transactions TransactionRepository
	events       EventPublisher
	now          func() time.Time
}

func NewTransactionService(customers CustomerRepository, transactions TransactionRepository, events EventPublisher) *TransactionService {
	return &TransactionService{
		customers:    customers,
		transactions: transactions,
		events:       events,
		now:          time.Now,
	}
}

// Add appends a transaction to one of the owner's customers. The ownership
// check and the insert share a database transaction, and the customer row
// is share-locked so a concurrent delete cannot orphan the new entry.
func (s *TransactionService) Add(ctx context.Context, ownerID string, req model.TransactionCreateRequest) (*model.Transaction, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if !validID(req.CustomerID) {
		return nil, ErrNotFound
	}

	var customer *model.Customer
	var created *model.Transaction
	err := s.customers.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customers.LockOwned(ctx, ownerID, req.CustomerID, "SHARE")
		if err != nil {
			return err
		}
		t, err := s.transactions.Create(ctx, &model.Transaction{
			CustomerID:    c.ID,
			OwnerID:       ownerID,
			Type:          req.Type,
			Amount:        *req.Amount,
			Description:   req.Description,
			PaymentMethod: req.PaymentMethod,
			Date:          req.DateOr(s.now().UTC()),
		})
		if err != nil {
			return err
		}
		customer, created = c, t
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("add transaction", err)
	}

	prom.IncTransactionAdded(string(created.Type), string(created.PaymentMethod))
	logger.Info("transaction added",
		"owner_id", ownerID,
		"customer_id", customer.ID,
		"transaction_id", created.ID,
		"type", created.Type)

	amount := created.Amount
	publish(ctx, s.events, &model.LedgerEvent{
		Type:          model.EventTransactionAdded,
		OwnerID:       ownerID,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		TransactionID: created.ID,
		TxType:        created.Type,
		Amount:        &amount,
		PaymentMethod: created.PaymentMethod,
	})
	return created, nil
}

// List returns the customer with its transactions, latest date first, and
// their summary.
func (s *TransactionService) List(ctx context.Context, ownerID, customerID string) (*model.CustomerLedger, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	if !validID(customerID) {
		return nil, ErrNotFound
	}

	customer, err := s.customers.FindOwned(ctx, ownerID, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, ErrNotFound
		}
		return nil, storeErr("find customer", err)
	}

	txns, err := s.transactions.ListByCustomer(ctx, ownerID, customerID)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}

	return &model.CustomerLedger{
		Customer:     customer,
		Summary:      model.Summarize(txns),
		Transactions: txns,
	}, nil
}
