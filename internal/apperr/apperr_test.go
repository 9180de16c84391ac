package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "not found wrapped", err: fmt.Errorf("get offer: %w", ErrNotFound), want: "NOT_FOUND"},
		{name: "validation helper", err: Validation("price must be positive"), want: "VALIDATION_ERROR"},
		{name: "already reviewed before validation", err: ErrAlreadyReviewed, want: "ALREADY_REVIEWED"},
		{name: "offer not available", err: ErrOfferNotAvailable, want: "OFFER_NOT_AVAILABLE"},
		{name: "insufficient funds", err: fmt.Errorf("debit: %w", ErrInsufficientFunds), want: "INSUFFICIENT_FUNDS"},
		{name: "transaction failed", err: ErrTransactionFailed, want: "TRANSACTION_FAILED"},
		{name: "credentials", err: ErrInvalidCredentials, want: "INVALID_CREDENTIALS"},
		{name: "unauthorized", err: ErrUnauthorized, want: "UNAUTHORIZED"},
		{name: "duplicate email", err: ErrDuplicateEmail, want: "DUPLICATE_EMAIL"},
		{name: "unknown", err: errors.New("boom"), want: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Code(tt.err))
		})
	}
}

func TestInsufficientFundsIsTransactionFailed(t *testing.T) {
	assert.ErrorIs(t, ErrInsufficientFunds, ErrTransactionFailed)
	assert.ErrorIs(t, ErrAlreadyReviewed, ErrValidation)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "validation keeps field message", err: fmt.Errorf("create offer: %w", Validation("title is required")), want: "title is required"},
		{name: "already reviewed", err: fmt.Errorf("verification 7: %w", ErrAlreadyReviewed), want: "verification has already been reviewed"},
		{
			name: "refund details are hidden",
			err:  fmt.Errorf("refund transaction 104: %w", fmt.Errorf("user 101 balance 123.45 < 900: %w", ErrInsufficientFunds)),
			want: "insufficient credit balance",
		},
		{name: "storage error", err: errors.New("insert offer: ERROR: relation \"offers\" does not exist"), want: "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Message(tt.err))
		})
	}
}

func TestValidationIsErrValidation(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("price must be positive"))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "wrap: validation error: price must be positive", err.Error())
}
