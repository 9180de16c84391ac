// Package model содержит доменные сущности маркетплейса миль.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль пользователя.
type Role string

const (
	RoleUser    Role = "USER"
	RoleVIP     Role = "VIP"
	RolePremium Role = "PREMIUM"
	RoleAdmin   Role = "ADMIN"
)

// Valid сообщает, входит ли роль в закрытый набор значений.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleVIP, RolePremium, RoleAdmin:
		return true
	}
	return false
}

// User представляет зарегистрированного пользователя маркетплейса.
type User struct {
	ID            int64
	Email         string
	Name          string
	PasswordHash  []byte
	CreditBalance decimal.Decimal
	Role          Role
	IsVerified    bool
	CreatedAt     time.Time
}

// Airline описывает авиакомпанию из справочника.
type Airline struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// OfferType описывает тип предложения.
type OfferType string

const (
	OfferTypeSale     OfferType = "SALE"
	OfferTypeExchange OfferType = "EXCHANGE"
)

// Valid сообщает, входит ли тип в закрытый набор значений.
func (t OfferType) Valid() bool {
	return t == OfferTypeSale || t == OfferTypeExchange
}

// OfferStatus описывает жизненный цикл предложения.
type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusSold      OfferStatus = "SOLD"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// Offer описывает предложение миль на продажу или обмен.
type Offer struct {
	ID          int64
	OwnerID     int64
	AirlineID   int64
	Title       string
	MilesAmount int64
	Price       decimal.Decimal
	Type        OfferType
	Status      OfferStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OfferInput содержит данные для создания предложения.
type OfferInput struct {
	Title       string
	MilesAmount int64
	Price       decimal.Decimal
	Type        OfferType
	AirlineID   int64
}

// OfferPatch содержит изменяемые поля предложения. Nil означает «не менять».
type OfferPatch struct {
	Title       *string
	MilesAmount *int64
	Price       *decimal.Decimal
	Type        *OfferType
	AirlineID   *int64
}

// Empty сообщает, что патч ничего не меняет.
func (p OfferPatch) Empty() bool {
	return p.Title == nil && p.MilesAmount == nil && p.Price == nil && p.Type == nil && p.AirlineID == nil
}

// Apply применяет патч к копии предложения.
func (p OfferPatch) Apply(o Offer) Offer {
	if p.Title != nil {
		o.Title = *p.Title
	}
	if p.MilesAmount != nil {
		o.MilesAmount = *p.MilesAmount
	}
	if p.Price != nil {
		o.Price = *p.Price
	}
	if p.Type != nil {
		o.Type = *p.Type
	}
	if p.AirlineID != nil {
		o.AirlineID = *p.AirlineID
	}
	return o
}

// OfferSortKey задаёт поле сортировки ленты предложений.
type OfferSortKey string

const (
	SortByPrice       OfferSortKey = "price"
	SortByMilesAmount OfferSortKey = "milesAmount"
	SortByCreatedAt   OfferSortKey = "createdAt"
)

// Valid сообщает, поддерживается ли ключ сортировки.
func (k OfferSortKey) Valid() bool {
	switch k {
	case SortByPrice, SortByMilesAmount, SortByCreatedAt:
		return true
	}
	return false
}

// OfferSort задаёт порядок ленты.
type OfferSort struct {
	Key  OfferSortKey
	Desc bool
}

// OfferFilter содержит фильтры публичной ленты. Нулевые значения не фильтруют.
type OfferFilter struct {
	AirlineID *int64
	Type      *OfferType
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinMiles  *int64
	MaxMiles  *int64
}

// Page задаёт страницу выборки, нумерация с единицы.
type Page struct {
	Number int
	Size   int
}

// Offset возвращает смещение первой записи страницы.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// OfferPage описывает страницу предложений с метаданными пагинации.
type OfferPage struct {
	Items      []Offer
	Page       int
	Size       int
	Total      int64
	TotalPages int
}

// TransactionStatus описывает статус сделки.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusConfirmed TransactionStatus = "CONFIRMED"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusCancelled TransactionStatus = "CANCELLED"
)

// Valid сообщает, входит ли статус в закрытый набор значений.
func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPending, TransactionStatusConfirmed, TransactionStatusCompleted, TransactionStatusCancelled:
		return true
	}
	return false
}

// Terminal сообщает, что статус финальный.
func (s TransactionStatus) Terminal() bool {
	return s == TransactionStatusCompleted || s == TransactionStatusCancelled
}

// Open сообщает, что сделка ещё удерживает предложение.
func (s TransactionStatus) Open() bool {
	return s == TransactionStatusPending || s == TransactionStatusConfirmed
}

// Party описывает сторону сделки.
type Party string

const (
	PartyBuyer  Party = "buyer"
	PartySeller Party = "seller"
)

// Transaction описывает сделку между покупателем и продавцом.
type Transaction struct {
	ID        int64
	BuyerID   int64
	SellerID  int64
	OfferID   int64
	Amount    decimal.Decimal
	Status    TransactionStatus
	Hash      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PartyOf возвращает сторону сделки пользователя или false, если он не участник.
func (t Transaction) PartyOf(userID int64) (Party, bool) {
	switch userID {
	case t.SellerID:
		return PartySeller, true
	case t.BuyerID:
		return PartyBuyer, true
	}
	return "", false
}

// TransactionPage описывает страницу сделок пользователя.
type TransactionPage struct {
	Items      []Transaction
	Page       int
	Size       int
	Total      int64
	TotalPages int
}

// TransactionStats содержит агрегаты по сделкам пользователя.
type TransactionStats struct {
	CompletedPurchases int64           `json:"completedPurchases"`
	CompletedSales     int64           `json:"completedSales"`
	PendingAsBuyer     int64           `json:"pendingAsBuyer"`
	PendingAsSeller    int64           `json:"pendingAsSeller"`
	TotalVolume        decimal.Decimal `json:"totalVolume"`
}

// DocumentType описывает тип документа, удостоверяющего личность.
type DocumentType string

const (
	DocumentRG       DocumentType = "RG"
	DocumentCNH      DocumentType = "CNH"
	DocumentPassport DocumentType = "PASSPORT"
)

// Valid сообщает, входит ли тип документа в закрытый набор значений.
func (d DocumentType) Valid() bool {
	switch d {
	case DocumentRG, DocumentCNH, DocumentPassport:
		return true
	}
	return false
}

// VerificationStatus описывает состояние проверки личности.
type VerificationStatus string

const (
	VerificationNotSubmitted VerificationStatus = "NOT_SUBMITTED"
	VerificationPending      VerificationStatus = "PENDING"
	VerificationApproved     VerificationStatus = "APPROVED"
	VerificationRejected     VerificationStatus = "REJECTED"
)

// ReviewAction описывает решение администратора.
type ReviewAction string

const (
	ReviewApprove ReviewAction = "APPROVE"
	ReviewReject  ReviewAction = "REJECT"
)

// Valid сообщает, входит ли решение в закрытый набор значений.
func (a ReviewAction) Valid() bool {
	return a == ReviewApprove || a == ReviewReject
}

// Status возвращает статус заявки, соответствующий решению.
func (a ReviewAction) Status() VerificationStatus {
	if a == ReviewApprove {
		return VerificationApproved
	}
	return VerificationRejected
}

// Verification описывает заявку на проверку личности. У пользователя не больше одной заявки.
type Verification struct {
	ID              int64
	UserID          int64
	DocumentType    DocumentType
	FrontRef        string
	BackRef         string
	Status          VerificationStatus
	RejectionReason string
	ReviewerID      *int64
	ReviewedAt      *time.Time
	SubmittedAt     time.Time
}

// Review содержит решение администратора по заявке.
type Review struct {
	VerificationID int64
	AdminID        int64
	Action         ReviewAction
	Reason         string
	ReviewedAt     time.Time
}

// VerificationPage описывает страницу очереди заявок на проверку.
type VerificationPage struct {
	Items      []Verification
	Page       int
	Size       int
	Total      int64
	TotalPages int
}
