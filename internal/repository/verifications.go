package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmeshcher/milesmarket/internal/model"
)

const verificationColumns = `id, user_id, document_type, front_ref, back_ref, status, rejection_reason, reviewer_id, reviewed_at, submitted_at`

func scanVerification(row interface{ Scan(dest ...any) error }) (*model.Verification, error) {
	var (
		v          model.Verification
		docType    string
		status     string
		reviewerID *int64
		reviewedAt *time.Time
	)
	err := row.Scan(&v.ID, &v.UserID, &docType, &v.FrontRef, &v.BackRef, &status, &v.RejectionReason, &reviewerID, &reviewedAt, &v.SubmittedAt)
	if err != nil {
		return nil, err
	}
	v.DocumentType = model.DocumentType(docType)
	v.Status = model.VerificationStatus(status)
	v.ReviewerID = reviewerID
	v.ReviewedAt = reviewedAt
	return &v, nil
}

// UpsertVerification создаёт заявку или перезаписывает существующую заявку пользователя,
// возвращая её в PENDING и сбрасывая результат прошлой проверки.
func (r *PostgresRepository) UpsertVerification(ctx context.Context, v model.Verification) (*model.Verification, error) {
	res, err := scanVerification(r.pool.QueryRow(ctx,
		`INSERT INTO verifications (user_id, document_type, front_ref, back_ref, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id) DO UPDATE SET
		   document_type    = EXCLUDED.document_type,
		   front_ref        = EXCLUDED.front_ref,
		   back_ref         = EXCLUDED.back_ref,
		   status           = EXCLUDED.status,
		   submitted_at     = EXCLUDED.submitted_at,
		   rejection_reason = '',
		   reviewer_id      = NULL,
		   reviewed_at      = NULL
		 RETURNING `+verificationColumns,
		v.UserID, string(v.DocumentType), v.FrontRef, v.BackRef, string(model.VerificationPending), v.SubmittedAt,
	))
	if err != nil {
		return nil, mapError("upsert verification", err)
	}
	return res, nil
}

// GetVerificationByUser возвращает заявку пользователя.
func (r *PostgresRepository) GetVerificationByUser(ctx context.Context, userID int64) (*model.Verification, error) {
	v, err := scanVerification(r.pool.QueryRow(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE user_id = $1`, userID))
	if err != nil {
		return nil, mapError(fmt.Sprintf("get verification of user %d", userID), err)
	}
	return v, nil
}

// ListPendingVerifications возвращает очередь заявок в порядке подачи.
func (r *PostgresRepository) ListPendingVerifications(ctx context.Context, page model.Page) ([]model.Verification, int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM verifications WHERE status = $1`, string(model.VerificationPending)).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count verifications: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+verificationColumns+` FROM verifications
		 WHERE status = $1
		 ORDER BY submitted_at, id
		 LIMIT $2 OFFSET $3`,
		string(model.VerificationPending), page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("select verifications: %w", err)
	}
	defer rows.Close()

	var res []model.Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan verification: %w", err)
		}
		res = append(res, *v)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}

	return res, total, nil
}

// ApplyReview записывает решение условным обновлением WHERE status = 'PENDING'.
// Если строка не обновилась, заявка либо отсутствует, либо уже рассмотрена.
func (t *pgTx) ApplyReview(ctx context.Context, rv model.Review) (*model.Verification, bool, error) {
	v, err := scanVerification(t.q.QueryRow(ctx,
		`UPDATE verifications
		 SET status = $2, reviewer_id = $3, reviewed_at = $4, rejection_reason = $5
		 WHERE id = $1 AND status = $6
		 RETURNING `+verificationColumns,
		rv.VerificationID, string(rv.Action.Status()), rv.AdminID, rv.ReviewedAt, rv.Reason, string(model.VerificationPending),
	))
	if err == nil {
		return v, true, nil
	}
	if !errors.Is(err, errNoRows) {
		return nil, false, fmt.Errorf("apply review: %w", err)
	}

	v, err = scanVerification(t.q.QueryRow(ctx, `SELECT `+verificationColumns+` FROM verifications WHERE id = $1`, rv.VerificationID))
	if err != nil {
		return nil, false, mapError(fmt.Sprintf("get verification %d", rv.VerificationID), err)
	}
	return v, false, nil
}
