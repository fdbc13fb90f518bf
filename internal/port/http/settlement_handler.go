package http

import (
	"net/http"

	"github.com/Shiyikai2002/student-trading-platform/internal/platform/logger"
	"github.com/Shiyikai2002/student-trading-platform/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type SettlementHandler struct {
	settlement service.SettlementService
	log        logger.Logger
}

func NewSettlementHandler(settlement service.SettlementService, log logger.Logger) *SettlementHandler {
	return &SettlementHandler{settlement: settlement, log: log.Named("settlement_handler")}
}

func (h *SettlementHandler) HandleInitiatePurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tx, err := h.settlement.InitiatePurchase(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

type buyRequest struct {
	Address string `json:"address"`
}

func (h *SettlementHandler) HandleBuyWithBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req buyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	tx, err := h.settlement.ProcessPurchase(r.Context(), userID, chi.URLParam(r, "id"), req.Address)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *SettlementHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tx, err := h.settlement.Confirm(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *SettlementHandler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	tx, err := h.settlement.GetTransaction(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *SettlementHandler) HandlePurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	txs, err := h.settlement.ListPurchases(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *SettlementHandler) HandleSales(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	txs, err := h.settlement.ListSales(r.Context(), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *SettlementHandler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, err := h.settlement.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": user.Balance})
}

type offerRequest struct {
	Price decimal.Decimal `json:"price"`
}

func (h *SettlementHandler) HandleMakeOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req offerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	offer, err := h.settlement.MakeOffer(r.Context(), userID, chi.URLParam(r, "id"), req.Price)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, offer)
}

func (h *SettlementHandler) HandleListOffers(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	offers, err := h.settlement.ListOffers(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, offers)
}

func (h *SettlementHandler) HandleAcceptOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	res, err := h.settlement.AcceptOffer(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *SettlementHandler) HandleRejectOffer(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	offer, err := h.settlement.RejectOffer(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, offer)
}
