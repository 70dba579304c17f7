package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCOD  PaymentMethod = "cod"
	PaymentMethodCard PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusCancelled OrderStatus = "cancelled"
)

// PaymentSource records which trigger moved the order into its terminal
// payment status. Empty while the order is still pending.
type PaymentSource string

const (
	SourceNone      PaymentSource = ""
	SourceClient    PaymentSource = "client"
	SourceProcessor PaymentSource = "processor"
)

type Order struct {
	ID                string          `json:"id"`
	UserID            string          `json:"userId"`
	Items             []OrderItem     `json:"items"`
	Amount            decimal.Decimal `json:"amount"`
	Address           Address         `json:"address"`
	PaymentMethod     PaymentMethod   `json:"paymentMethod"`
	PaymentStatus     PaymentStatus   `json:"paymentStatus"`
	Status            OrderStatus     `json:"status"`
	PaymentSource     PaymentSource   `json:"paymentSource,omitempty"`
	ProcessorIntentID string          `json:"processorIntentId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"price"`
	Quantity  int32           `json:"quantity"`
	Image     string          `json:"image,omitempty"`
}

// MinorUnits converts the order amount to integer minor units (cents) the
// way the payment processor expects it.
func (o Order) MinorUnits() int64 {
	return o.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

type CreateOrderRequest struct {
	Items         []OrderItemRequest
	Address       RawAddress
	PaymentMethod PaymentMethod
}

type OrderItemRequest struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int32
	Image     string
}
