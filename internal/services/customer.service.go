package services

import (
	"context"
	"errors"

	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/internal/repository"
	"github.com/nimasrn/cash-ledger/pkg/logger"
	"github.com/nimasrn/cash-ledger/pkg/prom"
)

type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) (*model.Customer, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Customer, error)
	FindOwned(ctx context.Context, ownerID, id string) (*model.Customer, error)
	LockOwned(ctx context.Context, ownerID, id, strength string) (*model.Customer, error)
	DeleteOwned(ctx context.Context, ownerID, id string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	ListByCustomer(ctx context.Context, ownerID, customerID string) ([]*model.Transaction, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Transaction, error)
	DeleteByCustomer(ctx context.Context, ownerID, customerID string) (int64, error)
}

type CustomerService struct {
	customers    CustomerRepository
	transactions TransactionRepository
	events       EventPublisher
}

func NewCustomerService(customers CustomerRepository, transactions TransactionRepository, events EventPublisher) *CustomerService {
	return &CustomerService{
		customers:    customers,
		transactions: transactions,
		events:       events,
	}
}

func (s *CustomerService) Create(ctx context.Context, ownerID string, req model.CustomerCreateRequest) (*model.Customer, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	created, err := s.customers.Create(ctx, &model.Customer{
		OwnerID: ownerID,
		Name:    req.Name,
		Phone:   req.Phone,
	})
	if err != nil {
		return nil, storeErr("create customer", err)
	}

	prom.IncCustomerCreated()
	logger.Info("customer created", "owner_id", ownerID, "customer_id", created.ID)
	publish(ctx, s.events, &model.LedgerEvent{
		Type:         model.EventCustomerCreated,
		OwnerID:      ownerID,
		CustomerID:   created.ID,
		CustomerName: created.Name,
	})
	return created, nil
}

// List returns the owner's customers, newest first, each with its totals.
func (s *CustomerService) List(ctx context.Context, ownerID string) ([]*model.CustomerWithTotals, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	customers, err := s.customers.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list customers", err)
	}
	txns, err := s.transactions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, storeErr("list transactions", err)
	}

	byCustomer := model.SummarizeByCustomer(txns)
	out := make([]*model.CustomerWithTotals, len(customers))
	for i, c := range customers {
		// a customer without transactions gets the zero summary
		out[i] = &model.CustomerWithTotals{Customer: c, Totals: byCustomer[c.ID].Totals()}
	}
	return out, nil
}

// Delete removes a customer and all of its transactions in one database
// transaction. A customer owned by someone else is reported as ErrNotFound.
func (s *CustomerService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}
	if !validID(id) {
		return ErrNotFound
	}

	var deleted *model.Customer
	var removed int64
	err := s.customers.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.customers.LockOwned(ctx, ownerID, id, "UPDATE")
		if err != nil {
			return err
		}
		if removed, err = s.transactions.DeleteByCustomer(ctx, ownerID, id); err != nil {
			return err
		}
		if err := s.customers.DeleteOwned(ctx, ownerID, id); err != nil {
			return err
		}
		deleted = c
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return ErrNotFound
		}
		return storeErr("delete customer", err)
	}

	prom.IncCustomerDeleted()
	logger.Info("customer deleted", "owner_id", ownerID, "customer_id", id, "transactions", removed)
	publish(ctx, s.events, &model.LedgerEvent{
		Type:         model.EventCustomerDeleted,
		OwnerID:      ownerID,
		CustomerID:   id,
		CustomerName: deleted.Name,
	})
	return nil
}

// Summary aggregates every transaction of the owner.
func (s *CustomerService) Summary(ctx context.Context, ownerID string) (model.Summary, error) {
	if ownerID == "" {
		return model.Summary{}, ErrUnauthenticated
	}
	txns, err := s.transactions.ListByOwner(ctx, ownerID)
	if err != nil {
		return model.Summary{}, storeErr("summarize", err)
	}
	return model.Summarize(txns), nil
}
