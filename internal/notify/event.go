// Package notify содержит типизированные события уведомлений и способы их доставки.
package notify

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind описывает вид уведомления.
type Kind string

const (
	KindSaleCompleted            Kind = "SALE_COMPLETED"
	KindPurchaseCreated          Kind = "PURCHASE_CREATED"
	KindTransactionStatusChanged Kind = "TRANSACTION_STATUS_CHANGED"
	KindVerificationReviewed     Kind = "VERIFICATION_REVIEWED"
)

// Event описывает закрытый набор событий, о которых сообщается пользователям.
type Event interface {
	Kind() Kind
	Recipient() int64
	sealed()
}

// SaleCompleted отправляется продавцу после успешной покупки его предложения.
type SaleCompleted struct {
	SellerID      int64           `json:"sellerId"`
	BuyerID       int64           `json:"buyerId"`
	TransactionID int64           `json:"transactionId"`
	OfferID       int64           `json:"offerId"`
	OfferTitle    string          `json:"offerTitle"`
	Amount        decimal.Decimal `json:"amount"`
}

func (SaleCompleted) Kind() Kind         { return KindSaleCompleted }
func (e SaleCompleted) Recipient() int64 { return e.SellerID }
func (SaleCompleted) sealed()            {}

// PurchaseCreated отправляется покупателю после создания сделки.
type PurchaseCreated struct {
	BuyerID       int64           `json:"buyerId"`
	SellerID      int64           `json:"sellerId"`
	TransactionID int64           `json:"transactionId"`
	OfferID       int64           `json:"offerId"`
	OfferTitle    string          `json:"offerTitle"`
	Amount        decimal.Decimal `json:"amount"`
}

func (PurchaseCreated) Kind() Kind         { return KindPurchaseCreated }
func (e PurchaseCreated) Recipient() int64 { return e.BuyerID }
func (PurchaseCreated) sealed()            {}

// TransactionStatusChanged отправляется второй стороне сделки при смене статуса.
type TransactionStatusChanged struct {
	RecipientID   int64  `json:"recipientId"`
	ActorID       int64  `json:"actorId"`
	TransactionID int64  `json:"transactionId"`
	From          string `json:"from"`
	To            string `json:"to"`
}

func (TransactionStatusChanged) Kind() Kind         { return KindTransactionStatusChanged }
func (e TransactionStatusChanged) Recipient() int64 { return e.RecipientID }
func (TransactionStatusChanged) sealed()            {}

// VerificationReviewed отправляется пользователю после решения по его заявке.
type VerificationReviewed struct {
	UserID          int64  `json:"userId"`
	VerificationID  int64  `json:"verificationId"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

func (VerificationReviewed) Kind() Kind         { return KindVerificationReviewed }
func (e VerificationReviewed) Recipient() int64 { return e.UserID }
func (VerificationReviewed) sealed()            {}

// Envelope задаёт формат уведомления при передаче во внешние системы.
type Envelope struct {
	ID          uuid.UUID `json:"id"`
	Kind        Kind      `json:"kind"`
	RecipientID int64     `json:"recipientId"`
	OccurredAt  time.Time `json:"occurredAt"`
	Payload     Event     `json:"payload"`
}

// NewEnvelope упаковывает событие с новым идентификатором.
func NewEnvelope(ev Event, occurredAt time.Time) Envelope {
	return Envelope{
		ID:          uuid.New(),
		Kind:        ev.Kind(),
		RecipientID: ev.Recipient(),
		OccurredAt:  occurredAt.UTC(),
		Payload:     ev,
	}
}

// Marshal сериализует конверт в JSON.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
