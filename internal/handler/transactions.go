package handler

import (
	"net/http"

	"github.com/mmeshcher/milesmarket/internal/model"
)

type statusRequest struct {
	Status model.TransactionStatus `json:"status"`
}

// ListTransactions возвращает сделки текущего пользователя.
// Параметр role=buyer|seller ограничивает выборку одной стороной.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var party *model.Party
	if raw := r.URL.Query().Get("role"); raw != "" {
		p := model.Party(raw)
		party = &p
	}

	res, err := h.service.ListTransactions(r.Context(), currentUser(r), party, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res.Items, newTransactionResponse, res.Page, res.Size, res.Total, res.TotalPages))
}

// GetTransaction возвращает сделку участнику.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.service.GetTransaction(r.Context(), id, currentUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

// UpdateTransactionStatus переводит сделку в новый статус.
func (h *Handler) UpdateTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	t, err := h.service.Transition(r.Context(), id, currentUser(r), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

// GetStats возвращает агрегаты по сделкам текущего пользователя.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Stats(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
