package handlers

import (
	"context"
	"strconv"

	"github.com/nimasrn/cash-ledger/internal/model"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
)

type ActivityService interface {
	List(ctx context.Context, f model.ActivityFilter) ([]*model.Activity, error)
}

type ActivityHandler struct {
	svc ActivityService
}

func RegisterActivityRoutes(e *xhttp.Group, h *ActivityHandler, requireAuth xhttp.MiddlewareFunc) {
	e.GET("/activity", requireAuth(h.ListActivity))
}

func NewActivityHandler(activityService ActivityService) *ActivityHandler {
	return &ActivityHandler{
		svc: activityService,
	}
}

func (h *ActivityHandler) ListActivity(ctx *xhttp.RequestCtx) {
	f := model.ActivityFilter{
		OwnerID:    ownerID(ctx),
		CustomerID: query(ctx, "customerId"),
	}
	if v := query(ctx, "limit"); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			f.Limit = n
		}
	}

	items, err := h.svc.List(ctx, f)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if items == nil {
		items = []*model.Activity{}
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse[*model.Activity]{Items: items})
}
