// Package handler содержит HTTP-обработчики API маркетплейса миль.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/middleware"
	"github.com/mmeshcher/milesmarket/internal/model"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	Register(ctx context.Context, email, name, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GrantCredit(ctx context.Context, adminID, userID int64, amount decimal.Decimal) (decimal.Decimal, error)

	ListAirlines(ctx context.Context) ([]model.Airline, error)
	CreateOffer(ctx context.Context, ownerID int64, in model.OfferInput) (*model.Offer, error)
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	ListOffers(ctx context.Context, filter model.OfferFilter, sort model.OfferSort, page model.Page) (*model.OfferPage, error)
	ListMyOffers(ctx context.Context, ownerID int64, page model.Page) (*model.OfferPage, error)
	UpdateOffer(ctx context.Context, id, ownerID int64, patch model.OfferPatch) (*model.Offer, error)
	CancelOffer(ctx context.Context, id, ownerID int64) (*model.Offer, error)

	Purchase(ctx context.Context, buyerID, offerID int64) (*model.Transaction, error)
	Transition(ctx context.Context, txID, actorID int64, target model.TransactionStatus) (*model.Transaction, error)
	GetTransaction(ctx context.Context, txID, userID int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, party *model.Party, page model.Page) (*model.TransactionPage, error)
	Stats(ctx context.Context, userID int64) (*model.TransactionStats, error)

	SubmitVerification(ctx context.Context, userID int64, docType model.DocumentType, frontRef, backRef string) (*model.Verification, error)
	VerificationStatus(ctx context.Context, userID int64) (*model.Verification, error)
	ReviewVerification(ctx context.Context, verificationID, adminID int64, action model.ReviewAction, reason string) (*model.Verification, error)
	ListPendingVerifications(ctx context.Context, adminID int64, page model.Page) (*model.VerificationPage, error)
}

// Handler реализует HTTP-обработчики API маркетплейса миль.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf сопоставляет доменную ошибку с HTTP-статусом.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrOfferNotAvailable):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, apperr.ErrTransactionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	code := apperr.Code(err)

	fields := []zap.Field{
		zap.Error(err),
		zap.String("code", code),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", fields...)
	} else {
		h.logger.Info("request rejected", fields...)
	}

	writeJSON(w, status, errorResponse{Error: code, Message: apperr.Message(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if field, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
			return apperr.Validation("unknown field %s", field)
		}
		return fmt.Errorf("decode body: %w: %w", apperr.Validation("invalid request body"), err)
	}
	return nil
}

func currentUser(r *http.Request) int64 {
	id, _ := middleware.GetUserIDFromContext(r.Context())
	return id
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation("invalid %s", name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation("invalid %s", name)
	}
	return v, nil
}

func pageFromQuery(r *http.Request) (model.Page, error) {
	number, err := queryInt(r, "page")
	if err != nil {
		return model.Page{}, err
	}
	size, err := queryInt(r, "size")
	if err != nil {
		return model.Page{}, err
	}
	return model.Page{Number: number, Size: size}, nil
}
