package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/apperr"
	"github.com/mmeshcher/milesmarket/internal/model"
)

// memStore хранит данные в памяти для тестов. InTx сериализует единицы работы
// и применяет изменения, только если fn завершилась без ошибки.
type memStore struct {
	mu    sync.Mutex
	state memState

	failInsertTransaction error
}

type memState struct {
	nextID   int64
	users    map[int64]model.User
	airlines map[int64]model.Airline
	offers   map[int64]model.Offer
	txs      map[int64]model.Transaction
	verifs   map[int64]model.Verification
}

func newMemStore() *memStore {
	return &memStore{state: memState{
		users:    map[int64]model.User{},
		airlines: map[int64]model.Airline{1: {ID: 1, Code: "LA", Name: "LATAM"}},
		offers:   map[int64]model.Offer{},
		txs:      map[int64]model.Transaction{},
		verifs:   map[int64]model.Verification{},
		nextID:   100,
	}}
}

func (s memState) clone() memState {
	c := memState{
		nextID:   s.nextID,
		users:    make(map[int64]model.User, len(s.users)),
		airlines: make(map[int64]model.Airline, len(s.airlines)),
		offers:   make(map[int64]model.Offer, len(s.offers)),
		txs:      make(map[int64]model.Transaction, len(s.txs)),
		verifs:   make(map[int64]model.Verification, len(s.verifs)),
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.airlines {
		c.airlines[k] = v
	}
	for k, v := range s.offers {
		c.offers[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	for k, v := range s.verifs {
		c.verifs[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// helpers for test setup

func (m *memStore) addUser(role model.Role, balance string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.id()
	m.state.users[id] = model.User{
		ID:            id,
		Email:         strings.ToLower(string(role)) + "@example.com",
		CreditBalance: decimal.RequireFromString(balance),
		Role:          role,
	}
	return id
}

func (m *memStore) addOffer(ownerID int64, price string, status model.OfferStatus) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.state.id()
	m.state.offers[id] = model.Offer{
		ID:          id,
		OwnerID:     ownerID,
		AirlineID:   1,
		Title:       "10k miles",
		MilesAmount: 10000,
		Price:       decimal.RequireFromString(price),
		Type:        model.OfferTypeSale,
		Status:      status,
		CreatedAt:   time.Now(),
	}
	return id
}

func (m *memStore) addTransaction(t model.Transaction) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.state.id()
	m.state.txs[t.ID] = t
	return t.ID
}

func (m *memStore) user(id int64) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.users[id]
}

func (m *memStore) offer(id int64) model.Offer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.offers[id]
}

func (m *memStore) tx(id int64) model.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.txs[id]
}

func (m *memStore) txCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.txs)
}

// Store

func (m *memStore) Close() error { return nil }

func (m *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	if err := fn(ctx, &memTx{state: &work, store: m}); err != nil {
		return err
	}
	m.state = work
	return nil
}

func (m *memStore) CreateUser(ctx context.Context, email, name string, hash []byte, role model.Role) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.state.users {
		if u.Email == email {
			return nil, apperr.ErrDuplicateEmail
		}
	}
	u := model.User{ID: m.state.id(), Email: email, Name: name, PasswordHash: hash, Role: role, CreditBalance: decimal.Zero}
	m.state.users[u.ID] = u
	return &u, nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.state.users[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.state.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) GetAirline(ctx context.Context, id int64) (*model.Airline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.airlines[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) ListAirlines(ctx context.Context) ([]model.Airline, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []model.Airline
	for _, a := range m.state.airlines {
		res = append(res, a)
	}
	return res, nil
}

func (m *memStore) CreateOffer(ctx context.Context, ownerID int64, in model.OfferInput) (*model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := model.Offer{
		ID:          m.state.id(),
		OwnerID:     ownerID,
		AirlineID:   in.AirlineID,
		Title:       in.Title,
		MilesAmount: in.MilesAmount,
		Price:       in.Price,
		Type:        in.Type,
		Status:      model.OfferStatusActive,
		CreatedAt:   time.Now(),
	}
	m.state.offers[o.ID] = o
	return &o, nil
}

func (m *memStore) GetOffer(ctx context.Context, id int64) (*model.Offer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.offers[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &o, nil
}

func pageOffers(list []model.Offer, page model.Page) []model.Offer {
	start := page.Offset()
	if start >= len(list) {
		return nil
	}
	end := start + page.Size
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func (m *memStore) ListActiveOffers(ctx context.Context, f model.OfferFilter, s model.OfferSort, page model.Page) ([]model.Offer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Offer
	for _, o := range m.state.offers {
		if o.Status != model.OfferStatusActive {
			continue
		}
		if f.AirlineID != nil && o.AirlineID != *f.AirlineID {
			continue
		}
		if f.MaxPrice != nil && o.Price.GreaterThan(*f.MaxPrice) {
			continue
		}
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		var less bool
		switch s.Key {
		case model.SortByPrice:
			less = list[i].Price.LessThan(list[j].Price)
		case model.SortByMilesAmount:
			less = list[i].MilesAmount < list[j].MilesAmount
		default:
			less = list[i].ID < list[j].ID
		}
		if s.Desc {
			return !less
		}
		return less
	})
	return pageOffers(list, page), int64(len(list)), nil
}

func (m *memStore) ListOffersByOwner(ctx context.Context, ownerID int64, page model.Page) ([]model.Offer, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Offer
	for _, o := range m.state.offers {
		if o.OwnerID == ownerID {
			list = append(list, o)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return pageOffers(list, page), int64(len(list)), nil
}

func (m *memStore) GetTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.state.txs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) ListTransactions(ctx context.Context, userID int64, party *model.Party, page model.Page) ([]model.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Transaction
	for _, t := range m.state.txs {
		p, ok := t.PartyOf(userID)
		if !ok || (party != nil && p != *party) {
			continue
		}
		list = append(list, t)
	}
	return list, int64(len(list)), nil
}

func (m *memStore) TransactionStats(ctx context.Context, userID int64) (*model.TransactionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := &model.TransactionStats{TotalVolume: decimal.Zero}
	for _, t := range m.state.txs {
		switch {
		case t.Status == model.TransactionStatusCompleted && t.BuyerID == userID:
			st.CompletedPurchases++
			st.TotalVolume = st.TotalVolume.Add(t.Amount)
		case t.Status == model.TransactionStatusCompleted && t.SellerID == userID:
			st.CompletedSales++
			st.TotalVolume = st.TotalVolume.Add(t.Amount)
		case t.Status == model.TransactionStatusPending && t.BuyerID == userID:
			st.PendingAsBuyer++
		case t.Status == model.TransactionStatusPending && t.SellerID == userID:
			st.PendingAsSeller++
		}
	}
	return st, nil
}

func (m *memStore) UpsertVerification(ctx context.Context, v model.Verification) (*model.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.users[v.UserID]; !ok {
		return nil, apperr.ErrNotFound
	}
	for id, existing := range m.state.verifs {
		if existing.UserID == v.UserID {
			v.ID = id
		}
	}
	if v.ID == 0 {
		v.ID = m.state.id()
	}
	v.Status = model.VerificationPending
	v.ReviewerID = nil
	v.ReviewedAt = nil
	v.RejectionReason = ""
	m.state.verifs[v.ID] = v
	return &v, nil
}

func (m *memStore) GetVerificationByUser(ctx context.Context, userID int64) (*model.Verification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.state.verifs {
		if v.UserID == userID {
			return &v, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (m *memStore) ListPendingVerifications(ctx context.Context, page model.Page) ([]model.Verification, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []model.Verification
	for _, v := range m.state.verifs {
		if v.Status == model.VerificationPending {
			list = append(list, v)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].SubmittedAt.Equal(list[j].SubmittedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].SubmittedAt.Before(list[j].SubmittedAt)
	})
	return list, int64(len(list)), nil
}

// Tx

type memTx struct {
	state *memState
	store *memStore
}

func (t *memTx) LockBalances(ctx context.Context, ids ...int64) (map[int64]decimal.Decimal, error) {
	res := make(map[int64]decimal.Decimal, len(ids))
	for _, id := range ids {
		if u, ok := t.state.users[id]; ok {
			res[id] = u.CreditBalance
		}
	}
	return res, nil
}

func (t *memTx) SetBalance(ctx context.Context, id int64, b decimal.Decimal) error {
	u, ok := t.state.users[id]
	if !ok {
		return apperr.ErrNotFound
	}
	if b.IsNegative() {
		return errors.New("balance check constraint violated")
	}
	u.CreditBalance = b
	t.state.users[id] = u
	return nil
}

func (t *memTx) LockOffer(ctx context.Context, id int64) (*model.Offer, error) {
	o, ok := t.state.offers[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &o, nil
}

func (t *memTx) LockOwnedOffer(ctx context.Context, id, ownerID int64) (*model.Offer, error) {
	o, ok := t.state.offers[id]
	if !ok || o.OwnerID != ownerID {
		return nil, apperr.ErrNotFound
	}
	return &o, nil
}

func (t *memTx) UpdateOffer(ctx context.Context, o model.Offer) (*model.Offer, error) {
	t.state.offers[o.ID] = o
	return &o, nil
}

func (t *memTx) SetOfferStatus(ctx context.Context, id int64, to model.OfferStatus, from ...model.OfferStatus) (bool, error) {
	o, ok := t.state.offers[id]
	if !ok {
		return false, nil
	}
	if len(from) > 0 {
		match := false
		for _, f := range from {
			if o.Status == f {
				match = true
			}
		}
		if !match {
			return false, nil
		}
	}
	o.Status = to
	t.state.offers[id] = o
	return true, nil
}

func (t *memTx) HasOpenTransaction(ctx context.Context, offerID int64) (bool, error) {
	for _, tr := range t.state.txs {
		if tr.OfferID == offerID && tr.Status.Open() {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr model.Transaction) (*model.Transaction, error) {
	if t.store.failInsertTransaction != nil {
		return nil, t.store.failInsertTransaction
	}
	for _, existing := range t.state.txs {
		if existing.Hash == tr.Hash {
			return nil, errors.New("duplicate settlement hash")
		}
		if existing.OfferID == tr.OfferID && existing.Status.Open() {
			return nil, apperr.ErrOfferNotAvailable
		}
	}
	tr.ID = t.state.id()
	tr.CreatedAt = time.Now()
	tr.UpdatedAt = tr.CreatedAt
	t.state.txs[tr.ID] = tr
	return &tr, nil
}

func (t *memTx) LockTransaction(ctx context.Context, id int64) (*model.Transaction, error) {
	tr, ok := t.state.txs[id]
	if !ok {
		return nil, apperr.ErrNotFound
	}
	return &tr, nil
}

func (t *memTx) SetTransactionStatus(ctx context.Context, id int64, from, to model.TransactionStatus) (bool, error) {
	tr, ok := t.state.txs[id]
	if !ok || tr.Status != from {
		return false, nil
	}
	tr.Status = to
	t.state.txs[id] = tr
	return true, nil
}

func (t *memTx) ApplyReview(ctx context.Context, r model.Review) (*model.Verification, bool, error) {
	v, ok := t.state.verifs[r.VerificationID]
	if !ok {
		return nil, false, apperr.ErrNotFound
	}
	if v.Status != model.VerificationPending {
		return &v, false, nil
	}
	v.Status = r.Action.Status()
	v.ReviewerID = &r.AdminID
	reviewedAt := r.ReviewedAt
	v.ReviewedAt = &reviewedAt
	v.RejectionReason = r.Reason
	t.state.verifs[v.ID] = v
	return &v, true, nil
}

func (t *memTx) SetUserVerified(ctx context.Context, userID int64, verified bool) error {
	u, ok := t.state.users[userID]
	if !ok {
		return apperr.ErrNotFound
	}
	u.IsVerified = verified
	t.state.users[userID] = u
	return nil
}
