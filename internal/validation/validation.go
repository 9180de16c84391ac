// Package validation содержит функции валидации входных данных.
package validation

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
)

const (
	// DefaultPageSize используется, если размер страницы не задан.
	DefaultPageSize = 20
	// MaxPageSize ограничивает размер страницы сверху.
	MaxPageSize = 100

	maxTitleLength     = 120
	maxDocumentRefSize = 512
	maxReasonLength    = 500
	minPasswordLength  = 8
)

// NormalizePage приводит номер и размер страницы к допустимым значениям.
func NormalizePage(number, size int) model.Page {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return model.Page{Number: number, Size: size}
}

// Amount проверяет, что денежная сумма положительна и содержит не больше двух знаков после запятой.
func Amount(field string, v decimal.Decimal) error {
	if !v.IsPositive() {
		return apperr.Validation("%s must be positive", field)
	}
	if !v.Equal(v.Round(2)) {
		return apperr.Validation("%s must have at most 2 decimal places", field)
	}
	return nil
}

func title(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return apperr.Validation("title is required")
	}
	if utf8.RuneCountInString(v) > maxTitleLength {
		return apperr.Validation("title is longer than %d characters", maxTitleLength)
	}
	return nil
}

func miles(v int64) error {
	if v <= 0 {
		return apperr.Validation("milesAmount must be positive")
	}
	return nil
}

func offerType(v model.OfferType) error {
	if !v.Valid() {
		return apperr.Validation("unknown offer type %q", v)
	}
	return nil
}

func airlineID(v int64) error {
	if v <= 0 {
		return apperr.Validation("airlineId is required")
	}
	return nil
}

// OfferInput проверяет данные нового предложения.
func OfferInput(in model.OfferInput) error {
	if err := title(in.Title); err != nil {
		return err
	}
	if err := miles(in.MilesAmount); err != nil {
		return err
	}
	if err := Amount("price", in.Price); err != nil {
		return err
	}
	if err := offerType(in.Type); err != nil {
		return err
	}
	return airlineID(in.AirlineID)
}

// OfferPatch проверяет изменяемые поля предложения.
func OfferPatch(p model.OfferPatch) error {
	if p.Empty() {
		return apperr.Validation("nothing to update")
	}
	if p.Title != nil {
		if err := title(*p.Title); err != nil {
			return err
		}
	}
	if p.MilesAmount != nil {
		if err := miles(*p.MilesAmount); err != nil {
			return err
		}
	}
	if p.Price != nil {
		if err := Amount("price", *p.Price); err != nil {
			return err
		}
	}
	if p.Type != nil {
		if err := offerType(*p.Type); err != nil {
			return err
		}
	}
	if p.AirlineID != nil {
		return airlineID(*p.AirlineID)
	}
	return nil
}

// OfferFilter проверяет согласованность диапазонов фильтра.
func OfferFilter(f model.OfferFilter) error {
	if f.Type != nil {
		if err := offerType(*f.Type); err != nil {
			return err
		}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return apperr.Validation("minPrice is greater than maxPrice")
	}
	if f.MinMiles != nil && f.MaxMiles != nil && *f.MinMiles > *f.MaxMiles {
		return apperr.Validation("minMiles is greater than maxMiles")
	}
	return nil
}

// Documents проверяет тип документа и ссылки на загруженные файлы.
func Documents(docType model.DocumentType, frontRef, backRef string) error {
	if !docType.Valid() {
		return apperr.Validation("unknown document type %q", docType)
	}
	for name, ref := range map[string]string{"frontRef": frontRef, "backRef": backRef} {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return apperr.Validation("%s is required", name)
		}
		if len(ref) > maxDocumentRefSize {
			return apperr.Validation("%s is too long", name)
		}
	}
	return nil
}

// Review проверяет решение администратора. Отказ требует непустую причину.
func Review(action model.ReviewAction, reason string) error {
	if !action.Valid() {
		return apperr.Validation("unknown review action %q", action)
	}
	reason = strings.TrimSpace(reason)
	if action == model.ReviewReject && reason == "" {
		return apperr.Validation("rejectionReason is required for REJECT")
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return apperr.Validation("rejectionReason is longer than %d characters", maxReasonLength)
	}
	return nil
}

// Credentials проверяет email и пароль при регистрации.
func Credentials(email, password string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("invalid email")
	}
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}
