package repository

import (
	"context"
	"fmt"

	"github.com/mmeshcher/milesmarket/internal/model"
)

// GetAirline возвращает авиакомпанию по идентификатору.
func (r *PostgresRepository) GetAirline(ctx context.Context, id int64) (*model.Airline, error) {
	var a model.Airline
	err := r.pool.QueryRow(ctx, `SELECT id, code, name FROM airlines WHERE id = $1`, id).Scan(&a.ID, &a.Code, &a.Name)
	if err != nil {
		return nil, mapError(fmt.Sprintf("get airline %d", id), err)
	}
	return &a, nil
}

// ListAirlines возвращает справочник авиакомпаний, упорядоченный по названию.
func (r *PostgresRepository) ListAirlines(ctx context.Context) ([]model.Airline, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name FROM airlines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select airlines: %w", err)
	}
	defer rows.Close()

	var res []model.Airline
	for rows.Next() {
		var a model.Airline
		if err := rows.Scan(&a.ID, &a.Code, &a.Name); err != nil {
			return nil, fmt.Errorf("scan airline: %w", err)
		}
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
