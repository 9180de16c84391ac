package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/ledger"
	"github.com/mmeshcher/milesmarket/internal/model"
	"github.com/mmeshcher/milesmarket/internal/validation"
)

// PasswordCost задаёт стоимость bcrypt для новых паролей.
var PasswordCost = bcrypt.DefaultCost

// Register регистрирует нового пользователя с нулевым балансом и ролью USER.
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.Credentials(email, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	return s.store.CreateUser(ctx, email, strings.TrimSpace(name), hash, model.RoleUser)
}

// Authenticate проверяет email и пароль и возвращает пользователя.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)) != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (s *Service) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

func (s *Service) requireAdmin(ctx context.Context, userID int64) error {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return apperr.ErrUnauthorized
		}
		return err
	}
	if u.Role != model.RoleAdmin {
		return apperr.ErrUnauthorized
	}
	return nil
}

// GrantCredit зачисляет кредиты на баланс пользователя. Доступно только администратору.
func (s *Service) GrantCredit(ctx context.Context, adminID, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := validation.Amount("amount", amount); err != nil {
		return decimal.Zero, err
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return decimal.Zero, err
	}

	var balance decimal.Decimal
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		balance, err = ledger.Credit(ctx, tx, userID, amount)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}
