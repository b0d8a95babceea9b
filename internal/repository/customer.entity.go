package repository

import (
	"github.com/nimasrn/cash-ledger/internal/model"
	"github.com/nimasrn/cash-ledger/pkg/pg"
)

type CustomerEntity struct {
	pg.Model
	OwnerID string `gorm:"column:owner_id;type:uuid;not null;index"`
	Name    string `gorm:"column:name;not null"`
	Phone   string `gorm:"column:phone;not null"`
}

func (CustomerEntity) TableName() string {
	return "customers"
}

func toCustomerEntity(m *model.Customer) *CustomerEntity {
	if m == nil {
		return nil
	}
	return &CustomerEntity{
		Model:   pg.Model{ID: m.ID, CreatedAt: m.CreatedAt},
		OwnerID: m.OwnerID,
		Name:    m.Name,
		Phone:   m.Phone,
	}
}

func toCustomerModel(e *CustomerEntity) *model.Customer {
	if e == nil {
		return nil
	}
	return &model.Customer{
		ID:        e.ID,
		OwnerID:   e.OwnerID,
		Name:      e.Name,
		Phone:     e.Phone,
		CreatedAt: e.CreatedAt,
	}
}

func toCustomerModels(entities []*CustomerEntity) []*model.Customer {
	models := make([]*model.Customer, len(entities))
	for i, e := range entities {
		models[i] = toCustomerModel(e)
	}
	return models
}
