package app

import (
	"context"
	"time"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/domain"
)

type OrderRepo interface {
	// Create persists the order, its items and the user-history append in a
	// single transaction.
	Create(ctx context.Context, order domain.Order) (domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	SetProcessorIntent(ctx context.Context, orderID, intentID string) error
	// UpdatePaymentState applies tr only if the order's payment status still
	// equals expect, reporting whether the row was updated.
	UpdatePaymentState(ctx context.Context, orderID string, expect domain.PaymentStatus, tr domain.PaymentTransition) (bool, error)
}

// Event kinds and intent statuses as the processor reports them.
const (
	ProcessorEventSucceeded = "payment_intent.succeeded"
	ProcessorEventFailed    = "payment_intent.payment_failed"

	IntentStatusSucceeded = "succeeded"
)

type IntentParams struct {
	Amount   int64 // minor units
	Currency string
	OrderID  string
	UserID   string
}

type PaymentIntent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       int64
}

type PaymentProcessor interface {
	CreateIntent(ctx context.Context, params IntentParams) (PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (PaymentIntent, error)
}

// ProcessorEvent is a webhook event after signature verification, with the
// correlation metadata attached at intent creation resolved back out.
type ProcessorEvent struct {
	ID       string
	Kind     string
	IntentID string
	OrderID  string
	UserID   string
}

// EventVerifier authenticates a raw webhook body against its signature
// header. Implementations must fail closed: any parse or verification
// problem is ErrInvalidSignature, never a trusted event.
type EventVerifier interface {
	Verify(payload []byte, signature string) (ProcessorEvent, error)
}

type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

const (
	OrderEventCreated        = "order.created"
	OrderEventPaymentUpdated = "order.payment_updated"
)

type OrderEvent struct {
	Kind          string               `json:"kind"`
	OrderID       string               `json:"orderId"`
	UserID        string               `json:"userId"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	Status        domain.OrderStatus   `json:"status"`
	At            time.Time            `json:"at"`
}

// EventPublisher fans order lifecycle events out to interested consumers.
// Publishing is best-effort; the payment path never fails on it.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}
