package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/milesmarket/internal/model"
)

const timeLayout = time.RFC3339

type userResponse struct {
	ID            int64           `json:"id"`
	Email         string          `json:"email"`
	Name          string          `json:"name"`
	Role          model.Role      `json:"role"`
	CreditBalance decimal.Decimal `json:"creditBalance"`
	IsVerified    bool            `json:"isVerified"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Role:          u.Role,
		CreditBalance: u.CreditBalance,
		IsVerified:    u.IsVerified,
	}
}

type offerResponse struct {
	ID          int64             `json:"id"`
	OwnerID     int64             `json:"ownerId"`
	AirlineID   int64             `json:"airlineId"`
	Title       string            `json:"title"`
	MilesAmount int64             `json:"milesAmount"`
	Price       decimal.Decimal   `json:"price"`
	Type        model.OfferType   `json:"type"`
	Status      model.OfferStatus `json:"status"`
	CreatedAt   string            `json:"createdAt"`
	UpdatedAt   string            `json:"updatedAt"`
}

func newOfferResponse(o *model.Offer) offerResponse {
	return offerResponse{
		ID:          o.ID,
		OwnerID:     o.OwnerID,
		AirlineID:   o.AirlineID,
		Title:       o.Title,
		MilesAmount: o.MilesAmount,
		Price:       o.Price,
		Type:        o.Type,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt.Format(timeLayout),
		UpdatedAt:   o.UpdatedAt.Format(timeLayout),
	}
}

type transactionResponse struct {
	ID        int64                   `json:"id"`
	BuyerID   int64                   `json:"buyerId"`
	SellerID  int64                   `json:"sellerId"`
	OfferID   int64                   `json:"offerId"`
	Amount    decimal.Decimal         `json:"amount"`
	Status    model.TransactionStatus `json:"status"`
	Hash      string                  `json:"hash"`
	CreatedAt string                  `json:"createdAt"`
	UpdatedAt string                  `json:"updatedAt"`
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:        t.ID,
		BuyerID:   t.BuyerID,
		SellerID:  t.SellerID,
		OfferID:   t.OfferID,
		Amount:    t.Amount,
		Status:    t.Status,
		Hash:      t.Hash,
		CreatedAt: t.CreatedAt.Format(timeLayout),
		UpdatedAt: t.UpdatedAt.Format(timeLayout),
	}
}

type verificationResponse struct {
	ID              int64                    `json:"id,omitempty"`
	UserID          int64                    `json:"userId"`
	DocumentType    model.DocumentType       `json:"documentType,omitempty"`
	FrontRef        string                   `json:"frontRef,omitempty"`
	BackRef         string                   `json:"backRef,omitempty"`
	Status          model.VerificationStatus `json:"status"`
	RejectionReason string                   `json:"rejectionReason,omitempty"`
	ReviewerID      *int64                   `json:"reviewerId,omitempty"`
	ReviewedAt      *string                  `json:"reviewedAt,omitempty"`
	SubmittedAt     *string                  `json:"submittedAt,omitempty"`
}

func newVerificationResponse(v *model.Verification) verificationResponse {
	resp := verificationResponse{
		ID:              v.ID,
		UserID:          v.UserID,
		DocumentType:    v.DocumentType,
		FrontRef:        v.FrontRef,
		BackRef:         v.BackRef,
		Status:          v.Status,
		RejectionReason: v.RejectionReason,
		ReviewerID:      v.ReviewerID,
	}
	if v.ReviewedAt != nil {
		s := v.ReviewedAt.Format(timeLayout)
		resp.ReviewedAt = &s
	}
	if !v.SubmittedAt.IsZero() {
		s := v.SubmittedAt.Format(timeLayout)
		resp.SubmittedAt = &s
	}
	return resp
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func newPageResponse[S, T any](items []S, conv func(*S) T, page, size int, total int64, totalPages int) pageResponse[T] {
	out := make([]T, 0, len(items))
	for i := range items {
		out = append(out, conv(&items[i]))
	}
	return pageResponse[T]{Items: out, Page: page, Size: size, Total: total, TotalPages: totalPages}
}
