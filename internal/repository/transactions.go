package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/milesmarket/internal/model"
)

const transactionColumns = `id, buyer_id, seller_id, offer_id, amount::text, status, hash, created_at, updated_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*model.Transaction, error) {
	var (
		t      model.Transaction
		amount string
		status string
	)
	if err := row.Scan(&t.ID, &t.BuyerID, &t.SellerID, &t.OfferID, &amount, &status, &t.Hash, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}

	a, err := parseDecimal(amount)
	if err != nil {
		return nil, err
	}
	t.Amount = a
	t.Status = model.TransactionStatus(status)
	return &t, nil
}

// GetTransaction возвращает сделку по идентификатору.
func (r *PostgresRepository) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get transaction %d", id), err)
	}
	return t, nil
}

// ListTransactions возвращает сделки пользователя, новые первыми.
func (r *PostgresRepository) ListTransactions(ctx context.Context, userID int64, party *model.Party, page model.Page) ([]model.Transaction, int64, error) {
	cond := `(buyer_id = $1 OR seller_id = $1)`
	if party != nil {
		switch *party {
		case model.PartyBuyer:
			cond = `buyer_id = $1`
		case model.PartySeller:
			cond = `seller_id = $1`
		}
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions WHERE `+cond, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+cond+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		userID, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan transaction: %w", err)
		}
		res = append(res, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// TransactionStats считает завершённые и ожидающие сделки пользователя и их общий объём.
func (r *PostgresRepository) TransactionStats(ctx context.Context, userID int64) (*model.TransactionStats, error) {
	var (
		st     model.TransactionStats
		volume string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE status = 'COMPLETED' AND buyer_id = $1),
		   COUNT(*) FILTER (WHERE status = 'COMPLETED' AND seller_id = $1),
		   COUNT(*) FILTER (WHERE status = 'PENDING' AND buyer_id = $1),
		   COUNT(*) FILTER (WHERE status = 'PENDING' AND seller_id = $1),
		   COALESCE(SUM(amount) FILTER (WHERE status = 'COMPLETED'), 0)::text
		 FROM transactions
		 WHERE buyer_id = $1 OR seller_id = $1`,
		userID,
	).Scan(&st.CompletedPurchases, &st.CompletedSales, &st.PendingAsBuyer, &st.PendingAsSeller, &volume)
	if err != nil {
		return nil, fmt.Errorf("transaction stats: %w", err)
	}

	v, err := parseDecimal(volume)
	if err != nil {
		return nil, err
	}
	st.TotalVolume = v
	return &st, nil
}

// InsertTransaction создаёт сделку. Вторая открытая сделка по тому же предложению
// отклоняется частичным уникальным индексом.
func (t *pgTx) InsertTransaction(ctx context.Context, tr model.Transaction) (*model.Transaction, error) {
	res, err := scanTransaction(t.q.QueryRow(ctx,
		`INSERT INTO transactions (buyer_id, seller_id, offer_id, amount, status, hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+transactionColumns,
		tr.BuyerID, tr.SellerID, tr.OfferID, tr.Amount.String(), string(tr.Status), tr.Hash,
	))
	if err != nil {
		return nil, mapError("insert transaction", err)
	}
	return res, nil
}

// LockTransaction читает сделку и блокирует её строку до конца транзакции.
func (t *pgTx) LockTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	res, err := scanTransaction(t.q.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("lock transaction %d", id), err)
	}
	return res, nil
}

// SetTransactionStatus меняет статус, только если текущий равен from.
func (t *pgTx) SetTransactionStatus(ctx context.Context, id int64, from, to model.TransactionStatus) (bool, error) {
	tag, err := t.q.Exec(ctx,
		`UPDATE transactions SET status = $3, updated_at = now() WHERE id = $1 AND status = $2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, mapError(fmt.Sprintf("set transaction %d status", id), err)
	}
	return tag.RowsAffected() == 1, nil
}
