// Package apperr содержит таксономию ошибок сервиса маркетплейса миль.
//
// Все слои возвращают эти ошибки (напрямую или обёрнутыми через %w),
// а HTTP-слой сопоставляет их со стабильной парой статус/код через errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound возвращается, если сущность не существует или не видна вызывающему.
	ErrNotFound = errors.New("not found")
	// ErrValidation возвращается при некорректных входных данных.
	ErrValidation = errors.New("validation error")
	// ErrOfferNotAvailable возвращается, если предложение не активно или занято открытой сделкой.
	ErrOfferNotAvailable = errors.New("offer not available")
	// ErrTransactionFailed возвращается при недопустимом переходе статуса, покупке своего
	// предложения или нехватке средств.
	ErrTransactionFailed = errors.New("transaction failed")
	// ErrInsufficientFunds возвращается, если баланса не хватает для списания.
	ErrInsufficientFunds = fmt.Errorf("%w: insufficient funds", ErrTransactionFailed)
	// ErrInvalidCredentials возвращается при неверном логине или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized возвращается, если у пользователя нет прав на действие.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicateEmail возвращается при регистрации с уже занятым email.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAlreadyReviewed возвращается при повторной проверке уже рассмотренной заявки.
	ErrAlreadyReviewed = fmt.Errorf("%w: verification already reviewed", ErrValidation)
)

// ValidationError описывает некорректное поле. Msg предназначено для вызывающего
// и не содержит внутренних идентификаторов.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return ErrValidation.Error() + ": " + e.Msg }

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation оборачивает ErrValidation сообщением о конкретном поле.
func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

var publicMessages = map[string]string{
	"NOT_FOUND":           "resource not found",
	"ALREADY_REVIEWED":    "verification has already been reviewed",
	"VALIDATION_ERROR":    "invalid request",
	"OFFER_NOT_AVAILABLE": "offer is not available",
	"INSUFFICIENT_FUNDS":  "insufficient credit balance",
	"TRANSACTION_FAILED":  "transaction cannot be performed",
	"INVALID_CREDENTIALS": "invalid email or password",
	"UNAUTHORIZED":        "action is not allowed",
	"DUPLICATE_EMAIL":     "email already registered",
	"INTERNAL_ERROR":      "internal server error",
}

// Message возвращает текст ошибки для вызывающего. Подробности обёрток
// (идентификаторы, балансы, ошибки хранилища) в него не попадают.
func Message(err error) string {
	code := Code(err)
	if code == "VALIDATION_ERROR" {
		var ve *ValidationError
		if errors.As(err, &ve) {
			return ve.Msg
		}
	}
	return publicMessages[code]
}

// Code возвращает стабильный машиночитаемый код ошибки.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrAlreadyReviewed):
		return "ALREADY_REVIEWED"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrOfferNotAvailable):
		return "OFFER_NOT_AVAILABLE"
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrTransactionFailed):
		return "TRANSACTION_FAILED"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrDuplicateEmail):
		return "DUPLICATE_EMAIL"
	default:
		return "INTERNAL_ERROR"
	}
}
