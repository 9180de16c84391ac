//go:build integration

package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
	"github.com/mmeshcher/milesmarket/internal/service"
)

func setupRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx))
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

type fixture struct {
	repo  *PostgresRepository
	svc   *service.Service
	admin int64
}

func newFixture(t *testing.T) *fixture {
	service.PasswordCost = bcrypt.MinCost
	repo := setupRepository(t)

	admin, err := repo.CreateUser(context.Background(), "admin@example.com", "Admin", []byte("x"), model.RoleAdmin)
	require.NoError(t, err)

	return &fixture{repo: repo, svc: service.NewService(repo, nil, nil), admin: admin.ID}
}

func (f *fixture) user(t *testing.T, email, balance string) int64 {
	t.Helper()
	ctx := context.Background()

	u, err := f.svc.Register(ctx, email, "Test", "password123")
	require.NoError(t, err)

	if amount := decimal.RequireFromString(balance); amount.IsPositive() {
		_, err = f.svc.GrantCredit(ctx, f.admin, u.ID, amount)
		require.NoError(t, err)
	}
	return u.ID
}

func (f *fixture) offer(t *testing.T, ownerID int64, price string) int64 {
	t.Helper()
	o, err := f.svc.CreateOffer(context.Background(), ownerID, model.OfferInput{
		Title:       "10k LATAM Pass",
		MilesAmount: 10000,
		Price:       decimal.RequireFromString(price),
		Type:        model.OfferTypeSale,
		AirlineID:   1,
	})
	require.NoError(t, err)
	return o.ID
}

func (f *fixture) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	u, err := f.repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	return u.CreditBalance
}

func TestIntegration_PurchaseLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller := f.user(t, "seller@example.com", "0")
	buyer := f.user(t, "buyer@example.com", "1000.00")
	offerID := f.offer(t, seller, "900.00")

	tx, err := f.svc.Purchase(ctx, buyer, offerID)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionStatusPending, tx.Status)
	assert.True(t, tx.Amount.Equal(decimal.RequireFromString("900")))
	assert.True(t, f.balance(t, seller).Equal(decimal.RequireFromString("900")))
	assert.True(t, f.balance(t, buyer).Equal(decimal.RequireFromString("100")))

	o, err := f.repo.GetOffer(ctx, offerID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusSold, o.Status)

	_, err = f.svc.Transition(ctx, tx.ID, seller, model.TransactionStatusConfirmed)
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, tx.ID, buyer, model.TransactionStatusCompleted)
	require.NoError(t, err)

	stats, err := f.svc.Stats(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CompletedSales)
	assert.True(t, stats.TotalVolume.Equal(decimal.RequireFromString("900")))

	_, err = f.svc.Transition(ctx, tx.ID, buyer, model.TransactionStatusCancelled)
	require.ErrorIs(t, err, apperr.ErrTransactionFailed)
}

func TestIntegration_ConcurrentPurchase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller := f.user(t, "seller@example.com", "0")
	offerID := f.offer(t, seller, "900.00")

	const buyers = 8
	ids := make([]int64, buyers)
	for i := range ids {
		ids[i] = f.user(t, fmt.Sprintf("buyer%d@example.com", i), "1000.00")
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(buyer int64) {
			defer wg.Done()
			_, err := f.svc.Purchase(ctx, buyer, offerID)
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrOfferNotAvailable)
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, success)

	total := f.balance(t, seller)
	for _, id := range ids {
		total = total.Add(f.balance(t, id))
	}
	assert.True(t, total.Equal(decimal.RequireFromString("8000")), "got %s", total)
}

func TestIntegration_CancelRefundsBuyer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller := f.user(t, "seller@example.com", "0")
	buyer := f.user(t, "buyer@example.com", "1000.00")
	offerID := f.offer(t, seller, "900.00")

	tx, err := f.svc.Purchase(ctx, buyer, offerID)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, tx.ID, seller, model.TransactionStatusCancelled)
	require.NoError(t, err)

	assert.True(t, f.balance(t, seller).IsZero())
	assert.True(t, f.balance(t, buyer).Equal(decimal.RequireFromString("1000")))

	o, err := f.repo.GetOffer(ctx, offerID)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusActive, o.Status)
}

func TestIntegration_Constraints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seller := f.user(t, "seller@example.com", "0")
	buyer := f.user(t, "buyer@example.com", "10")
	offerID := f.offer(t, seller, "5")

	_, err := f.repo.CreateUser(ctx, "seller@example.com", "Dup", []byte("x"), model.RoleUser)
	require.ErrorIs(t, err, apperr.ErrDuplicateEmail)

	err = f.repo.InTx(ctx, func(ctx context.Context, tx service.Tx) error {
		return tx.SetBalance(ctx, buyer, decimal.RequireFromString("-1"))
	})
	require.ErrorIs(t, err, apperr.ErrInsufficientFunds)

	insert := func(hash string) error {
		return f.repo.InTx(ctx, func(ctx context.Context, tx service.Tx) error {
			_, err := tx.InsertTransaction(ctx, model.Transaction{
				BuyerID: buyer, SellerID: seller, OfferID: offerID,
				Amount: decimal.RequireFromString("5"), Status: model.TransactionStatusPending, Hash: hash,
			})
			return err
		})
	}
	require.NoError(t, insert("h1"))
	require.ErrorIs(t, insert("h2"), apperr.ErrOfferNotAvailable)

	_, err = f.svc.CreateOffer(ctx, seller, model.OfferInput{
		Title: "x", MilesAmount: 1, Price: decimal.RequireFromString("1"), Type: model.OfferTypeSale, AirlineID: 999,
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestIntegration_ListActiveOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner := f.user(t, "owner@example.com", "0")
	f.offer(t, owner, "30")
	cheap := f.offer(t, owner, "10")
	mid := f.offer(t, owner, "20")
	_, err := f.svc.CancelOffer(ctx, mid, owner)
	require.NoError(t, err)

	maxPrice := decimal.RequireFromString("25")
	page, err := f.svc.ListOffers(ctx,
		model.OfferFilter{MaxPrice: &maxPrice},
		model.OfferSort{Key: model.SortByPrice},
		model.Page{Number: 1, Size: 10},
	)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, cheap, page.Items[0].ID)
	assert.Equal(t, int64(1), page.Total)

	page, err = f.svc.ListOffers(ctx, model.OfferFilter{}, model.OfferSort{Key: model.SortByPrice, Desc: true}, model.Page{Number: 1, Size: 1})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Price.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, 2, page.TotalPages)
}

func TestIntegration_ConcurrentReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := f.user(t, "user@example.com", "0")
	v, err := f.svc.SubmitVerification(ctx, user, model.DocumentRG, "front.jpg", "back.jpg")
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ReviewVerification(ctx, v.ID, f.admin, model.ReviewReject, "documento ilegível")
			if err == nil {
				mu.Lock()
				success++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, apperr.ErrAlreadyReviewed)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)

	got, err := f.svc.VerificationStatus(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, model.VerificationRejected, got.Status)
	assert.Equal(t, "documento ilegível", got.RejectionReason)

	again, err := f.svc.SubmitVerification(ctx, user, model.DocumentCNH, "front2.jpg", "back2.jpg")
	require.NoError(t, err)
	assert.Equal(t, v.ID, again.ID)
	assert.Equal(t, model.VerificationPending, again.Status)
	assert.Empty(t, again.RejectionReason)
	assert.Nil(t, again.ReviewerID)
}
