// Package service реализует бизнес-логику маркетплейса миль: каталог предложений,
// движок сделок с кредитным балансом и процесс проверки личности.
package service

import (
	"context"
	"time"

	"github.com/mmeshcher/milesmarket/internal/ledger"
	"github.com/mmeshcher/milesmarket/internal/model"
	"github.com/mmeshcher/milesmarket/internal/notify"
)

// Store описывает контракт хранилища, используемый сервисом.
type Store interface {
	Close() error

	// InTx выполняет fn в одной атомарной единице работы. Ошибка fn откатывает все изменения.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	CreateUser(ctx context.Context, email, name string, passwordHash []byte, role model.Role) (*model.User, error)
	GetUser(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	GetAirline(ctx context.Context, id int64) (*model.Airline, error)
	ListAirlines(ctx context.Context) ([]model.Airline, error)

	CreateOffer(ctx context.Context, ownerID int64, in model.OfferInput) (*model.Offer, error)
	GetOffer(ctx context.Context, id int64) (*model.Offer, error)
	ListActiveOffers(ctx context.Context, filter model.OfferFilter, sort model.OfferSort, page model.Page) ([]model.Offer, int64, error)
	ListOffersByOwner(ctx context.Context, ownerID int64, page model.Page) ([]model.Offer, int64, error)

	GetTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	ListTransactions(ctx context.Context, userID int64, party *model.Party, page model.Page) ([]model.Transaction, int64, error)
	TransactionStats(ctx context.Context, userID int64) (*model.TransactionStats, error)

	UpsertVerification(ctx context.Context, v model.Verification) (*model.Verification, error)
	GetVerificationByUser(ctx context.Context, userID int64) (*model.Verification, error)
	ListPendingVerifications(ctx context.Context, page model.Page) ([]model.Verification, int64, error)
}

// Tx описывает операции внутри единицы работы. Строки, прочитанные методами Lock*,
// остаются заблокированными до её завершения.
type Tx interface {
	ledger.Accounts

	LockOffer(ctx context.Context, id int64) (*model.Offer, error)
	// LockOwnedOffer совмещает проверку существования и владения: чужое предложение неотличимо от отсутствующего.
	LockOwnedOffer(ctx context.Context, id, ownerID int64) (*model.Offer, error)
	UpdateOffer(ctx context.Context, o model.Offer) (*model.Offer, error)
	// SetOfferStatus меняет статус, только если текущий входит в from (пустой from снимает условие).
	SetOfferStatus(ctx context.Context, id int64, to model.OfferStatus, from ...model.OfferStatus) (bool, error)
	HasOpenTransaction(ctx context.Context, offerID int64) (bool, error)

	InsertTransaction(ctx context.Context, t model.Transaction) (*model.Transaction, error)
	LockTransaction(ctx context.Context, id int64) (*model.Transaction, error)
	SetTransactionStatus(ctx context.Context, id int64, from, to model.TransactionStatus) (bool, error)

	// ApplyReview записывает решение, только если заявка в статусе PENDING.
	// Возвращает ErrNotFound для отсутствующей заявки и applied=false для уже рассмотренной.
	ApplyReview(ctx context.Context, r model.Review) (v *model.Verification, applied bool, err error)
	SetUserVerified(ctx context.Context, userID int64, verified bool) error
}

// AirlineSource описывает источник справочника авиакомпаний.
type AirlineSource interface {
	GetAirline(ctx context.Context, id int64) (*model.Airline, error)
	ListAirlines(ctx context.Context) ([]model.Airline, error)
}

// Notifier принимает события уведомлений. Реализация не должна блокировать вызывающего.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, notify.Event) {}

// Service содержит бизнес-логику маркетплейса.
type Service struct {
	store    Store
	airlines AirlineSource
	notifier Notifier
	now      func() time.Time
}

// NewService создаёт сервис. Если airlines равен nil, справочник читается из store;
// если notifier равен nil, уведомления не отправляются.
func NewService(store Store, airlines AirlineSource, notifier Notifier) *Service {
	if airlines == nil {
		airlines = store
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:    store,
		airlines: airlines,
		notifier: notifier,
		now:      time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func totalPages(total int64, size int) int {
	if size <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}
