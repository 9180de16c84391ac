package handler

import (
	"net/http"

	"github.com/mmeshcher/milesmarket/internal/model"
)

type verificationRequest struct {
	DocumentType model.DocumentType `json:"documentType"`
	FrontRef     string             `json:"frontRef"`
	BackRef      string             `json:"backRef"`
}

type reviewRequest struct {
	Action model.ReviewAction `json:"action"`
	Reason string             `json:"reason"`
}

// SubmitVerification принимает документы текущего пользователя на проверку.
func (h *Handler) SubmitVerification(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	v, err := h.service.SubmitVerification(r.Context(), currentUser(r), req.DocumentType, req.FrontRef, req.BackRef)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newVerificationResponse(v))
}

// GetVerification возвращает состояние проверки текущего пользователя.
func (h *Handler) GetVerification(w http.ResponseWriter, r *http.Request) {
	v, err := h.service.VerificationStatus(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVerificationResponse(v))
}

// ListPendingVerifications возвращает очередь заявок администратору.
func (h *Handler) ListPendingVerifications(w http.ResponseWriter, r *http.Request) {
	page, err := pageFromQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.service.ListPendingVerifications(r.Context(), currentUser(r), page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPageResponse(res.Items, newVerificationResponse, res.Page, res.Size, res.Total, res.TotalPages))
}

// ReviewVerification выносит решение администратора по заявке.
func (h *Handler) ReviewVerification(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	v, err := h.service.ReviewVerification(r.Context(), id, currentUser(r), req.Action, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newVerificationResponse(v))
}
