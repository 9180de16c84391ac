package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/model"
)

const userColumns = `id, email, name, password_hash, credit_balance::text, role, is_verified, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*model.User, error) {
	var (
		u       model.User
		balance string
		role    string
	)
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &balance, &role, &u.IsVerified, &u.CreatedAt); err != nil {
		return nil, err
	}

	b, err := parseDecimal(balance)
	if err != nil {
		return nil, err
	}
	u.CreditBalance = b
	u.Role = model.Role(role)
	return &u, nil
}

// CreateUser создаёт нового пользователя с нулевым балансом.
func (r *PostgresRepository) CreateUser(ctx context.Context, email, name string, passwordHash []byte, role model.Role) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING `+userColumns,
		email, name, passwordHash, string(role),
	))
	if err != nil {
		return nil, mapError("create user", err)
	}
	return u, nil
}

// GetUser возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get user %d", id), err)
	}
	return u, nil
}

// GetUserByEmail возвращает пользователя по email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, mapError("get user by email", err)
	}
	return u, nil
}

// LockBalances блокирует строки пользователей в порядке возрастания id и возвращает их балансы.
// Отсутствующие пользователи в результат не попадают.
func (t *pgTx) LockBalances(ctx context.Context, userIDs ...int64) (map[int64]decimal.Decimal, error) {
	ids := append([]int64(nil), userIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows, err := t.q.Query(ctx,
		`SELECT id, credit_balance::text FROM users WHERE id = ANY($1) ORDER BY id FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock balances: %w", err)
	}
	defer rows.Close()

	res := make(map[int64]decimal.Decimal, len(ids))
	for rows.Next() {
		var (
			id      int64
			balance string
		)
		if err := rows.Scan(&id, &balance); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		b, err := parseDecimal(balance)
		if err != nil {
			return nil, err
		}
		res[id] = b
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// SetBalance записывает новый баланс пользователя.
func (t *pgTx) SetBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	tag, err := t.q.Exec(ctx, `UPDATE users SET credit_balance = $2 WHERE id = $1`, userID, balance.String())
	if err != nil {
		return mapError(fmt.Sprintf("set balance of user %d", userID), err)
	}
	if tag.RowsAffected() == 0 {
		return mapError(fmt.Sprintf("set balance of user %d", userID), errNoRows)
	}
	return nil
}

// SetUserVerified меняет признак подтверждённой личности.
func (t *pgTx) SetUserVerified(ctx context.Context, userID int64, verified bool) error {
	tag, err := t.q.Exec(ctx, `UPDATE users SET is_verified = $2 WHERE id = $1`, userID, verified)
	if err != nil {
		return fmt.Errorf("set user verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return mapError(fmt.Sprintf("set user %d verified", userID), errNoRows)
	}
	return nil
}
