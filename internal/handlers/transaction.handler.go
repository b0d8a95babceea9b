package handlers

import (
	"context"

	"github.com/nimasrn/cash-ledger/internal/model"
	xhttp "github.com/nimasrn/cash-ledger/pkg/http"
)

type TransactionService interface {
	Add(ctx context.Context, ownerID string, req model.TransactionCreateRequest) (*model.Transaction, error)
	List(ctx context.Context, ownerID, customerID string) (*model.CustomerLedger, error)
}

type TransactionHandler struct {
	svc TransactionService
}

func RegisterTransactionRoutes(e *xhttp.Group, h *TransactionHandler, requireAuth xhttp.MiddlewareFunc) {
	e.POST("/transactions", requireAuth(h.AddTransaction))
	e.POST("/transactions/add", requireAuth(h.AddTransaction))
	e.GET("/transactions/{customerId}", requireAuth(h.ListTransactions))
}

func NewTransactionHandler(transactionService TransactionService) *TransactionHandler {
	return &TransactionHandler{
		svc: transactionService,
	}
}

type addTransactionResponse struct {
	Message     string             `json:"message"`
	Transaction *model.Transaction `json:"transaction"`
}

func (h *TransactionHandler) AddTransaction(ctx *xhttp.RequestCtx) {
	var req model.TransactionCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	txn, err := h.svc.Add(ctx, ownerID(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, addTransactionResponse{
		Message:     "Transaction added successfully",
		Transaction: txn,
	})
}

func (h *TransactionHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	ledger, err := h.svc.List(ctx, ownerID(ctx), pathParam(ctx, "customerId"))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	if ledger.Transactions == nil {
		ledger.Transactions = []*model.Transaction{}
	}
	writeJSON(ctx, xhttp.StatusOK, ledger)
}
