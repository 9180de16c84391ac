package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/ledger"
	"github.com/mmeshcher/milesmarket/internal/model"
	"github.com/mmeshcher/milesmarket/internal/notify"
	"github.com/mmeshcher/milesmarket/internal/validation"
)

// settlementHash строит уникальный идентификатор расчёта по сделке.
func settlementHash(buyerID, sellerID, offerID int64, amount decimal.Decimal) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%d:%d:%s:%s", buyerID, sellerID, offerID, amount.StringFixed(2), uuid.NewString())))
	return hex.EncodeToString(sum[:])
}

// Purchase покупает предложение. В одной единице работы: блокировка предложения,
// перевод цены со счёта покупателя продавцу, перевод предложения в SOLD и создание
// сделки в статусе PENDING с зафиксированной суммой.
func (s *Service) Purchase(ctx context.Context, buyerID, offerID int64) (*model.Transaction, error) {
	var (
		created *model.Transaction
		offer   *model.Offer
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		offer, err = tx.LockOffer(ctx, offerID)
		if err != nil {
			return err
		}

		if offer.Status != model.OfferStatusActive {
			return fmt.Errorf("offer %d is %s: %w", offerID, offer.Status, apperr.ErrOfferNotAvailable)
		}
		if offer.OwnerID == buyerID {
			return fmt.Errorf("buying own offer %d: %w", offerID, apperr.ErrTransactionFailed)
		}

		open, err := tx.HasOpenTransaction(ctx, offerID)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("offer %d has an open transaction: %w", offerID, apperr.ErrOfferNotAvailable)
		}

		if _, err := ledger.Transfer(ctx, tx, buyerID, offer.OwnerID, offer.Price); err != nil {
			return err
		}

		sold, err := tx.SetOfferStatus(ctx, offerID, model.OfferStatusSold, model.OfferStatusActive)
		if err != nil {
			return err
		}
		if !sold {
			return fmt.Errorf("offer %d: %w", offerID, apperr.ErrOfferNotAvailable)
		}

		created, err = tx.InsertTransaction(ctx, model.Transaction{
			BuyerID:  buyerID,
			SellerID: offer.OwnerID,
			OfferID:  offerID,
			Amount:   offer.Price,
			Status:   model.TransactionStatusPending,
			Hash:     settlementHash(buyerID, offer.OwnerID, offerID, offer.Price),
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, notify.SaleCompleted{
		SellerID:      created.SellerID,
		BuyerID:       created.BuyerID,
		TransactionID: created.ID,
		OfferID:       created.OfferID,
		OfferTitle:    offer.Title,
		Amount:        created.Amount,
	})
	s.notifier.Notify(ctx, notify.PurchaseCreated{
		BuyerID:       created.BuyerID,
		SellerID:      created.SellerID,
		TransactionID: created.ID,
		OfferID:       created.OfferID,
		OfferTitle:    offer.Title,
		Amount:        created.Amount,
	})

	return created, nil
}

// Transition меняет статус сделки от имени участника actorID.
//
// Перевод в CANCELLED возвращает зафиксированную сумму покупателю и снова открывает
// предложение; если у продавца уже нет этой суммы, отмена не выполняется.
// Перевод в COMPLETED подтверждает статус SOLD у предложения.
func (s *Service) Transition(ctx context.Context, txID, actorID int64, target model.TransactionStatus) (*model.Transaction, error) {
	if !target.Valid() {
		return nil, apperr.Validation("unknown transaction status %q", target)
	}

	var (
		res  *model.Transaction
		from model.TransactionStatus
	)

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		t, err := tx.LockTransaction(ctx, txID)
		if err != nil {
			return err
		}

		party, ok := t.PartyOf(actorID)
		if !ok {
			return fmt.Errorf("transaction %d: %w", txID, apperr.ErrNotFound)
		}

		from = t.Status
		if !CanTransition(from, party, target) {
			return fmt.Errorf("%s cannot move transaction %d from %s to %s: %w", party, txID, from, target, apperr.ErrTransactionFailed)
		}

		if _, err := tx.LockOffer(ctx, t.OfferID); err != nil {
			return err
		}

		switch target {
		case model.TransactionStatusCancelled:
			if _, err := ledger.Transfer(ctx, tx, t.SellerID, t.BuyerID, t.Amount); err != nil {
				return fmt.Errorf("refund transaction %d: %w", txID, err)
			}
			if _, err := tx.SetOfferStatus(ctx, t.OfferID, model.OfferStatusActive, model.OfferStatusSold); err != nil {
				return err
			}
		case model.TransactionStatusCompleted:
			if _, err := tx.SetOfferStatus(ctx, t.OfferID, model.OfferStatusSold); err != nil {
				return err
			}
		}

		applied, err := tx.SetTransactionStatus(ctx, txID, from, target)
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("transaction %d changed concurrently: %w", txID, apperr.ErrTransactionFailed)
		}

		t.Status = target
		res = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipient := res.BuyerID
	if actorID == res.BuyerID {
		recipient = res.SellerID
	}
	s.notifier.Notify(ctx, notify.TransactionStatusChanged{
		RecipientID:   recipient,
		ActorID:       actorID,
		TransactionID: res.ID,
		From:          string(from),
		To:            string(target),
	})

	return res, nil
}

// GetTransaction возвращает сделку участнику. Для остальных сделка не существует.
func (s *Service) GetTransaction(ctx context.Context, txID, userID int64) (*model.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if _, ok := t.PartyOf(userID); !ok {
		return nil, fmt.Errorf("transaction %d: %w", txID, apperr.ErrNotFound)
	}
	return t, nil
}

// ListTransactions возвращает сделки пользователя; party ограничивает выборку одной стороной.
func (s *Service) ListTransactions(ctx context.Context, userID int64, party *model.Party, page model.Page) (*model.TransactionPage, error) {
	if party != nil && *party != model.PartyBuyer && *party != model.PartySeller {
		return nil, apperr.Validation("unknown party %q", *party)
	}
	page = validation.NormalizePage(page.Number, page.Size)

	items, total, err := s.store.ListTransactions(ctx, userID, party, page)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Transaction{}
	}
	return &model.TransactionPage{
		Items:      items,
		Page:       page.Number,
		Size:       page.Size,
		Total:      total,
		TotalPages: totalPages(total, page.Size),
	}, nil
}

// Stats возвращает агрегаты по сделкам пользователя.
func (s *Service) Stats(ctx context.Context, userID int64) (*model.TransactionStats, error) {
	return s.store.TransactionStats(ctx, userID)
}
