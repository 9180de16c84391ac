package service

import (
	"context"
	"fmt"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
	"github.com/mmeshcher/milesmarket/internal/validation"
)

// ListAirlines возвращает справочник авиакомпаний.
func (s *Service) ListAirlines(ctx context.Context) ([]model.Airline, error) {
	return s.airlines.ListAirlines(ctx)
}

func (s *Service) ensureAirline(ctx context.Context, id int64) error {
	if _, err := s.airlines.GetAirline(ctx, id); err != nil {
		return fmt.Errorf("airline %d: %w", id, err)
	}
	return nil
}

// CreateOffer создаёт активное предложение владельца.
func (s *Service) CreateOffer(ctx context.Context, ownerID int64, in model.OfferInput) (*model.Offer, error) {
	if err := validation.OfferInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureAirline(ctx, in.AirlineID); err != nil {
		return nil, err
	}
	return s.store.CreateOffer(ctx, ownerID, in)
}

// GetOffer возвращает предложение по идентификатору.
func (s *Service) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	return s.store.GetOffer(ctx, id)
}

// ListOffers возвращает страницу публичной ленты. В ленту попадают только активные предложения.
func (s *Service) ListOffers(ctx context.Context, filter model.OfferFilter, sort model.OfferSort, page model.Page) (*model.OfferPage, error) {
	if err := validation.OfferFilter(filter); err != nil {
		return nil, err
	}
	if sort.Key == "" {
		sort = model.OfferSort{Key: model.SortByCreatedAt, Desc: true}
	}
	if !sort.Key.Valid() {
		return nil, apperr.Validation("unknown sort key %q", sort.Key)
	}
	page = validation.NormalizePage(page.Number, page.Size)

	items, total, err := s.store.ListActiveOffers(ctx, filter, sort, page)
	if err != nil {
		return nil, err
	}
	return newOfferPage(items, total, page), nil
}

// ListMyOffers возвращает все предложения владельца независимо от статуса.
func (s *Service) ListMyOffers(ctx context.Context, ownerID int64, page model.Page) (*model.OfferPage, error) {
	page = validation.NormalizePage(page.Number, page.Size)

	items, total, err := s.store.ListOffersByOwner(ctx, ownerID, page)
	if err != nil {
		return nil, err
	}
	return newOfferPage(items, total, page), nil
}

func newOfferPage(items []model.Offer, total int64, page model.Page) *model.OfferPage {
	if items == nil {
		items = []model.Offer{}
	}
	return &model.OfferPage{
		Items:      items,
		Page:       page.Number,
		Size:       page.Size,
		Total:      total,
		TotalPages: totalPages(total, page.Size),
	}
}

// UpdateOffer изменяет активное предложение владельца.
func (s *Service) UpdateOffer(ctx context.Context, id, ownerID int64, patch model.OfferPatch) (*model.Offer, error) {
	if err := validation.OfferPatch(patch); err != nil {
		return nil, err
	}
	if patch.AirlineID != nil {
		if err := s.ensureAirline(ctx, *patch.AirlineID); err != nil {
			return nil, err
		}
	}

	var updated *model.Offer
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOwnedOffer(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if o.Status != model.OfferStatusActive {
			return fmt.Errorf("offer %d is %s: %w", id, o.Status, apperr.ErrOfferNotAvailable)
		}

		updated, err = tx.UpdateOffer(ctx, patch.Apply(*o))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelOffer снимает предложение владельца с продажи.
// Проданное предложение и предложение с открытой сделкой снять нельзя.
func (s *Service) CancelOffer(ctx context.Context, id, ownerID int64) (*model.Offer, error) {
	var res *model.Offer
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.LockOwnedOffer(ctx, id, ownerID)
		if err != nil {
			return err
		}

		switch o.Status {
		case model.OfferStatusCancelled:
			res = o
			return nil
		case model.OfferStatusSold:
			return fmt.Errorf("offer %d is sold: %w", id, apperr.ErrOfferNotAvailable)
		}

		open, err := tx.HasOpenTransaction(ctx, id)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("offer %d has an open transaction: %w", id, apperr.ErrOfferNotAvailable)
		}

		ok, err := tx.SetOfferStatus(ctx, id, model.OfferStatusCancelled, model.OfferStatusActive)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("offer %d: %w", id, apperr.ErrOfferNotAvailable)
		}

		o.Status = model.OfferStatusCancelled
		res = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
