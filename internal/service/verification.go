package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
	"github.com/mmeshcher/milesmarket/internal/notify"
	"github.com/mmeshcher/milesmarket/internal/validation"
)

// SubmitVerification создаёт или перезаписывает заявку пользователя.
// Любая новая подача возвращает заявку в PENDING и очищает результат прошлой проверки.
func (s *Service) SubmitVerification(ctx context.Context, userID int64, docType model.DocumentType, frontRef, backRef string) (*model.Verification, error) {
	if err := validation.Documents(docType, frontRef, backRef); err != nil {
		return nil, err
	}

	return s.store.UpsertVerification(ctx, model.Verification{
		UserID:       userID,
		DocumentType: docType,
		FrontRef:     strings.TrimSpace(frontRef),
		BackRef:      strings.TrimSpace(backRef),
		Status:       model.VerificationPending,
		SubmittedAt:  s.now().UTC(),
	})
}

// VerificationStatus возвращает заявку пользователя. Если заявки нет, статус NOT_SUBMITTED.
func (s *Service) VerificationStatus(ctx context.Context, userID int64) (*model.Verification, error) {
	v, err := s.store.GetVerificationByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &model.Verification{UserID: userID, Status: model.VerificationNotSubmitted}, nil
		}
		return nil, err
	}
	return v, nil
}

// ReviewVerification выносит решение по заявке. Рассмотреть можно только заявку в PENDING;
// при конкурентных вызовах успешен ровно один.
func (s *Service) ReviewVerification(ctx context.Context, verificationID, adminID int64, action model.ReviewAction, reason string) (*model.Verification, error) {
	if err := validation.Review(action, reason); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if action == model.ReviewApprove {
		reason = ""
	}

	var res *model.Verification
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		v, applied, err := tx.ApplyReview(ctx, model.Review{
			VerificationID: verificationID,
			AdminID:        adminID,
			Action:         action,
			Reason:         reason,
			ReviewedAt:     s.now().UTC(),
		})
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("verification %d: %w", verificationID, apperr.ErrAlreadyReviewed)
		}

		if err := tx.SetUserVerified(ctx, v.UserID, action == model.ReviewApprove); err != nil {
			return err
		}
		res = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.VerificationReviewed{
		UserID:          res.UserID,
		VerificationID:  res.ID,
		Status:          string(res.Status),
		RejectionReason: res.RejectionReason,
	})

	return res, nil
}

// ListPendingVerifications возвращает очередь заявок на проверку, старые первыми.
func (s *Service) ListPendingVerifications(ctx context.Context, adminID int64, page model.Page) (*model.VerificationPage, error) {
	if err := s.requireAdmin(ctx, adminID); err != nil {
		return nil, err
	}
	page = validation.NormalizePage(page.Number, page.Size)

	items, total, err := s.store.ListPendingVerifications(ctx, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Verification{}
	}
	return &model.VerificationPage{
		Items:      items,
		Page:       page.Number,
		Size:       page.Size,
		Total:      total,
		TotalPages: totalPages(total, page.Size),
	}, nil
}
