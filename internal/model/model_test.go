package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTransactionPartyOf(t *testing.T) {
	tx := Transaction{BuyerID: 1, SellerID: 2}

	party, ok := tx.PartyOf(1)
	assert.True(t, ok)
	assert.Equal(t, PartyBuyer, party)

	party, ok = tx.PartyOf(2)
	assert.True(t, ok)
	assert.Equal(t, PartySeller, party)

	_, ok = tx.PartyOf(3)
	assert.False(t, ok)
}

func TestOfferPatchApply(t *testing.T) {
	o := Offer{Title: "old", MilesAmount: 1000, Price: decimal.NewFromInt(10), Type: OfferTypeSale, AirlineID: 1}

	title := "new"
	price := decimal.RequireFromString("12.50")
	patch := OfferPatch{Title: &title, Price: &price}

	got := patch.Apply(o)
	assert.Equal(t, "new", got.Title)
	assert.True(t, got.Price.Equal(price))
	assert.Equal(t, int64(1000), got.MilesAmount)
	assert.Equal(t, "old", o.Title, "original must not change")
	assert.False(t, patch.Empty())
	assert.True(t, OfferPatch{}.Empty())
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, RoleAdmin.Valid())
	assert.False(t, Role("ROOT").Valid())
	assert.True(t, OfferTypeExchange.Valid())
	assert.False(t, OfferType("GIFT").Valid())
	assert.True(t, SortByMilesAmount.Valid())
	assert.False(t, OfferSortKey("title").Valid())
	assert.True(t, DocumentPassport.Valid())
	assert.False(t, DocumentType("SSN").Valid())
	assert.True(t, TransactionStatusCancelled.Terminal())
	assert.False(t, TransactionStatusConfirmed.Terminal())
	assert.True(t, TransactionStatusConfirmed.Open())
	assert.Equal(t, VerificationRejected, ReviewReject.Status())
	assert.Equal(t, VerificationApproved, ReviewApprove.Status())
}

func TestPageOffset(t *testing.T) {
	assert.Equal(t, 0, Page{Number: 1, Size: 20}.Offset())
	assert.Equal(t, 40, Page{Number: 3, Size: 20}.Offset())
}
