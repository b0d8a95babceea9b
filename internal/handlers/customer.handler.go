package handlers

import (
	"context"

	"github.com/nimasrn/cash-ledger/internal/model"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
)

type CustomerService interface {
	Create(ctx context.Context, ownerID string, req model.CustomerCreateRequest) (*model.Customer, error)
	List(ctx context.Context, ownerID string) ([]*model.CustomerWithTotals, error)
	Delete(ctx context.Context, ownerID, id string) error
	Summary(ctx context.Context, ownerID string) (model.Summary, error)
}

type CustomerHandler struct {
	svc CustomerService
}

func RegisterCustomerRoutes(e *xhttp.Group, h *CustomerHandler, requireAuth xhttp.MiddlewareFunc) {
	e.POST("/customers", requireAuth(h.CreateCustomer))
	e.GET("/customers", requireAuth(h.ListCustomers))
	e.GET("/customers/summary", requireAuth(h.GetSummary))
	e.DELETE("/customers/{id}", requireAuth(h.DeleteCustomer))
}

func NewCustomerHandler(customerService CustomerService) *CustomerHandler {
	return &CustomerHandler{
		svc: customerService,
	}
}

func (h *CustomerHandler) CreateCustomer(ctx *xhttp.RequestCtx) {
	var req model.CustomerCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	c, err := h.svc.Create(ctx, ownerID(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, c)
}

func (h *CustomerHandler) ListCustomers(ctx *xhttp.RequestCtx) {
	items, err := h.svc.List(ctx, ownerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.CustomerWithTotals{}
	}
	writeJSON(ctx, xhttp.StatusOK, items)
}

func (h *CustomerHandler) GetSummary(ctx *xhttp.RequestCtx) {
	summary, err := h.svc.Summary(ctx, ownerID(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, summary)
}

func (h *CustomerHandler) DeleteCustomer(ctx *xhttp.RequestCtx) {
	if err := h.svc.Delete(ctx, ownerID(ctx), pathParam(ctx, "id")); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, messageResponse{Message: "Customer and transactions deleted successfully"})
}
