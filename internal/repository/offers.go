package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmeshcher/milesmarket/internal/model"
)

const offerColumns = `id, owner_id, airline_id, title, miles_amount, price::text, type, status, created_at, updated_at`

var sortColumns = map[model.OfferSortKey]string{
	model.SortByPrice:       "price",
	model.SortByMilesAmount: "miles_amount",
	model.SortByCreatedAt:   "created_at",
}

func scanOffer(row interface{ Scan(dest ...any) error }) (*model.Offer, error) {
	var (
		o      model.Offer
		price  string
		typ    string
		status string
	)
	if err := row.Scan(&o.ID, &o.OwnerID, &o.AirlineID, &o.Title, &o.MilesAmount, &price, &typ, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}

	p, err := parseDecimal(price)
	if err != nil {
		return nil, err
	}
	o.Price = p
	o.Type = model.OfferType(typ)
	o.Status = model.OfferStatus(status)
	return &o, nil
}

func collectOffers(ctx context.Context, q querier, sql string, args ...any) ([]model.Offer, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	defer rows.Close()

	var res []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// where накапливает условия запроса с позиционными параметрами.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *where) sql() string {
	return strings.Join(w.conds, " AND ")
}

// CreateOffer создаёт активное предложение.
func (r *PostgresRepository) CreateOffer(ctx context.Context, ownerID int64, in model.OfferInput) (*model.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx,
		`INSERT INTO offers (owner_id, airline_id, title, miles_amount, price, type, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+offerColumns,
		ownerID, in.AirlineID, strings.TrimSpace(in.Title), in.MilesAmount, in.Price.String(), string(in.Type), string(model.OfferStatusActive),
	))
	if err != nil {
		return nil, mapError("create offer", err)
	}
	return o, nil
}

// GetOffer возвращает предложение по идентификатору.
func (r *PostgresRepository) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get offer %d", id), err)
	}
	return o, nil
}

// ListActiveOffers возвращает страницу активных предложений и общее число подходящих под фильтр.
func (r *PostgresRepository) ListActiveOffers(ctx context.Context, f model.OfferFilter, s model.OfferSort, page model.Page) ([]model.Offer, int64, error) {
	w := &where{}
	w.add("status = $%d", string(model.OfferStatusActive))
	if f.AirlineID != nil {
		w.add("airline_id = $%d", *f.AirlineID)
	}
	if f.Type != nil {
		w.add("type = $%d", string(*f.Type))
	}
	if f.MinPrice != nil {
		w.add("price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		w.add("price <= $%d::numeric", f.MaxPrice.String())
	}
	if f.MinMiles != nil {
		w.add("miles_amount >= $%d", *f.MinMiles)
	}
	if f.MaxMiles != nil {
		w.add("miles_amount <= $%d", *f.MaxMiles)
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers WHERE `+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count offers: %w", err)
	}

	column, ok := sortColumns[s.Key]
	if !ok {
		column = sortColumns[model.SortByCreatedAt]
	}
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}

	args := append(w.args, page.Size, page.Offset())
	items, err := collectOffers(ctx, r.pool,
		fmt.Sprintf(`SELECT %s FROM offers WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
			offerColumns, w.sql(), column, dir, dir, len(args)-1, len(args)),
		args...,
	)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListOffersByOwner возвращает предложения владельца во всех статусах, новые первыми.
func (r *PostgresRepository) ListOffersByOwner(ctx context.Context, ownerID int64, page model.Page) ([]model.Offer, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM offers WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count offers: %w", err)
	}

	items, err := collectOffers(ctx, r.pool,
		`SELECT `+offerColumns+` FROM offers WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		ownerID, page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// LockOffer читает предложение и блокирует его строку до конца транзакции.
func (t *pgTx) LockOffer(ctx context.Context, id int64) (*model.Offer, error) {
	o, err := scanOffer(t.q.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, mapError(fmt.Sprintf("lock offer %d", id), err)
	}
	return o, nil
}

// LockOwnedOffer блокирует предложение, только если оно принадлежит ownerID.
func (t *pgTx) LockOwnedOffer(ctx context.Context, id, ownerID int64) (*model.Offer, error) {
	o, err := scanOffer(t.q.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1 AND owner_id = $2 FOR UPDATE`,
		id, ownerID,
	))
	if err != nil {
		return nil, mapError(fmt.Sprintf("lock offer %d", id), err)
	}
	return o, nil
}

// UpdateOffer сохраняет изменяемые поля предложения.
func (t *pgTx) UpdateOffer(ctx context.Context, o model.Offer) (*model.Offer, error) {
	res, err := scanOffer(t.q.QueryRow(ctx,
		`UPDATE offers
		 SET title = $2, miles_amount = $3, price = $4, type = $5, airline_id = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+offerColumns,
		o.ID, strings.TrimSpace(o.Title), o.MilesAmount, o.Price.String(), string(o.Type), o.AirlineID,
	))
	if err != nil {
		return nil, mapError(fmt.Sprintf("update offer %d", o.ID), err)
	}
	return res, nil
}

// SetOfferStatus выполняет условное обновление статуса.
func (t *pgTx) SetOfferStatus(ctx context.Context, id int64, to model.OfferStatus, from ...model.OfferStatus) (bool, error) {
	sql := `UPDATE offers SET status = $2, updated_at = now() WHERE id = $1`
	args := []any{id, string(to)}
	if len(from) > 0 {
		allowed := make([]string, 0, len(from))
		for _, s := range from {
			allowed = append(allowed, string(s))
		}
		sql += ` AND status = ANY($3)`
		args = append(args, allowed)
	}

	tag, err := t.q.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("set offer %d status: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// HasOpenTransaction сообщает, есть ли у предложения сделка в PENDING или CONFIRMED.
func (t *pgTx) HasOpenTransaction(ctx context.Context, offerID int64) (bool, error) {
	var exists bool
	err := t.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE offer_id = $1 AND status IN ($2, $3))`,
		offerID, string(model.TransactionStatusPending), string(model.TransactionStatusConfirmed),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check open transaction: %w", err)
	}
	return exists, nil
}
