package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// Register обрабатывает регистрацию нового пользователя.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	u, err := h.service.Register(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.issueToken(w, r, u, http.StatusCreated)
}

// Login выполняет аутентификацию пользователя и выдаёт токен доступа.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Email == "" || req.Password == "" {
		h.writeError(w, r, apperr.Validation("email and password are required"))
		return
	}

	u, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.issueToken(w, r, u, http.StatusOK)
}

func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request, u *model.User, status int) {
	token, exp, err := h.authMiddleware.IssueToken(u.ID, u.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.authMiddleware.SetAuthCookie(w, token, exp)
	writeJSON(w, status, authResponse{
		Token:     token,
		ExpiresAt: exp.Format(timeLayout),
		User:      newUserResponse(u),
	})
}

// GetBalance возвращает баланс текущего пользователя.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	u, err := h.service.GetUser(r.Context(), currentUser(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newUserResponse(u))
}

type creditRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type creditResponse struct {
	UserID        int64           `json:"userId"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
}

// GrantCredit зачисляет кредиты пользователю от имени администратора.
func (h *Handler) GrantCredit(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req creditRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	adminID := currentUser(r)
	balance, err := h.service.GrantCredit(r.Context(), adminID, userID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("credit granted",
		zap.Int64("adminID", adminID),
		zap.Int64("userID", userID),
		zap.String("amount", req.Amount.String()),
	)
	writeJSON(w, http.StatusOK, creditResponse{UserID: userID, CreditBalance: balance})
}
