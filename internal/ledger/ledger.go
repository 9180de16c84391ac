// Package ledger реализует примитивы кредитного баланса пользователей.
//
// Функции пакета работают внутри единицы работы (Accounts), которую открывает
// вызывающий: строки балансов блокируются в порядке возрастания идентификаторов,
// изменения применяются только при успешной фиксации внешней транзакции.
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/apperr"
)

// Accounts описывает доступ к балансам внутри одной атомарной единицы работы.
type Accounts interface {
	// LockBalances блокирует строки пользователей и возвращает их балансы.
	// Отсутствующие пользователи не попадают в результат.
	LockBalances(ctx context.Context, userIDs ...int64) (map[int64]decimal.Decimal, error)
	// SetBalance записывает новый баланс пользователя.
	SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
}

// Movement описывает результат перевода между двумя счетами.
type Movement struct {
	FromID     int64
	ToID       int64
	Amount     decimal.Decimal
	FromBefore decimal.Decimal
	FromAfter  decimal.Decimal
	ToBefore   decimal.Decimal
	ToAfter    decimal.Decimal
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.Validation("amount must be positive, got %s", amount.String())
	}
	return nil
}

func lockOne(ctx context.Context, acc Accounts, userID int64) (decimal.Decimal, error) {
	balances, err := acc.LockBalances(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("lock balance: %w", err)
	}
	bal, ok := balances[userID]
	if !ok {
		return decimal.Zero, fmt.Errorf("user %d: %w", userID, apperr.ErrNotFound)
	}
	return bal, nil
}

// Credit зачисляет amount на баланс пользователя и возвращает новый баланс.
func Credit(ctx context.Context, acc Accounts, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	bal, err := lockOne(ctx, acc, userID)
	if err != nil {
		return decimal.Zero, err
	}

	next := bal.Add(amount)
	if err := acc.SetBalance(ctx, userID, next); err != nil {
		return decimal.Zero, fmt.Errorf("credit user %d: %w", userID, err)
	}
	return next, nil
}

// Debit списывает amount с баланса пользователя. Баланс не может стать отрицательным.
func Debit(ctx context.Context, acc Accounts, userID int64, amount decimal.Decimal) (decimal.Decimal, error) {
	if err := checkAmount(amount); err != nil {
		return decimal.Zero, err
	}

	bal, err := lockOne(ctx, acc, userID)
	if err != nil {
		return decimal.Zero, err
	}

	if bal.LessThan(amount) {
		return decimal.Zero, fmt.Errorf("user %d balance %s < %s: %w", userID, bal.String(), amount.String(), apperr.ErrInsufficientFunds)
	}

	next := bal.Sub(amount)
	if err := acc.SetBalance(ctx, userID, next); err != nil {
		return decimal.Zero, fmt.Errorf("debit user %d: %w", userID, err)
	}
	return next, nil
}

// Transfer переводит amount со счёта fromID на счёт toID.
// Обе строки блокируются одним вызовом, поэтому встречные переводы не взаимоблокируются.
func Transfer(ctx context.Context, acc Accounts, fromID, toID int64, amount decimal.Decimal) (Movement, error) {
	if err := checkAmount(amount); err != nil {
		return Movement{}, err
	}
	if fromID == toID {
		return Movement{}, apperr.Validation("cannot transfer to the same account")
	}

	balances, err := acc.LockBalances(ctx, fromID, toID)
	if err != nil {
		return Movement{}, fmt.Errorf("lock balances: %w", err)
	}

	fromBal, ok := balances[fromID]
	if !ok {
		return Movement{}, fmt.Errorf("user %d: %w", fromID, apperr.ErrNotFound)
	}
	toBal, ok := balances[toID]
	if !ok {
		return Movement{}, fmt.Errorf("user %d: %w", toID, apperr.ErrNotFound)
	}

	if fromBal.LessThan(amount) {
		return Movement{}, fmt.Errorf("user %d balance %s < %s: %w", fromID, fromBal.String(), amount.String(), apperr.ErrInsufficientFunds)
	}

	m := Movement{
		FromID:     fromID,
		ToID:       toID,
		Amount:     amount,
		FromBefore: fromBal,
		FromAfter:  fromBal.Sub(amount),
		ToBefore:   toBal,
		ToAfter:    toBal.Add(amount),
	}

	if err := acc.SetBalance(ctx, fromID, m.FromAfter); err != nil {
		return Movement{}, fmt.Errorf("debit user %d: %w", fromID, err)
	}
	if err := acc.SetBalance(ctx, toID, m.ToAfter); err != nil {
		return Movement{}, fmt.Errorf("credit user %d: %w", toID, err)
	}

	return m, nil
}
