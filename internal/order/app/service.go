package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/domain"
)

const (
	defaultCurrency       = "usd"
	maxTransitionAttempts = 3
	notifyTimeout         = 15 * time.Second
)

type Params struct {
	Repo      OrderRepo
	Processor PaymentProcessor
	Events    EventVerifier
	Mailer    Mailer
	Publisher EventPublisher
	Logger    *slog.Logger

	// Currency is the fixed settlement currency for processor intents.
	Currency string
	// VerifyClientConfirm makes ConfirmPayment check the intent status at
	// the processor before trusting the client's assertion.
	VerifyClientConfirm bool
}

type Service struct {
	repo      OrderRepo
	processor PaymentProcessor
	events    EventVerifier
	mailer    Mailer
	publisher EventPublisher
	log       *slog.Logger

	currency            string
	verifyClientConfirm bool
}

func NewService(p Params) *Service {
	if p.Logger == nil {
		p.Logger = slog.Default()
	}
	if p.Currency == "" {
		p.Currency = defaultCurrency
	}
	return &Service{
		repo:                p.Repo,
		processor:           p.Processor,
		events:              p.Events,
		mailer:              p.Mailer,
		publisher:           p.Publisher,
		log:                 p.Logger,
		currency:            p.Currency,
		verifyClientConfirm: p.VerifyClientConfirm,
	}
}

// CreateOrder validates a cart submission, computes the authoritative total
// server-side and persists a new order in pending/pending state.
func (s *Service) CreateOrder(ctx context.Context, userID string, req domain.CreateOrderRequest) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, ErrUnauthenticated
	}
	if len(req.Items) == 0 {
		return domain.Order{}, &domain.ValidationError{Message: "order items are required"}
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	amount := decimal.Zero
	for i, it := range req.Items {
		if strings.TrimSpace(it.ProductID) == "" {
			return domain.Order{}, &domain.ValidationError{Message: "all items must have a valid product id"}
		}
		if it.Quantity < 1 {
			return domain.Order{}, &domain.ValidationError{Message: fmt.Sprintf("item %d: quantity must be at least 1", i)}
		}
		if it.UnitPrice.IsNegative() {
			return domain.Order{}, &domain.ValidationError{Message: fmt.Sprintf("item %d: price cannot be negative", i)}
		}
		items = append(items, domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Image:     it.Image,
		})
		amount = amount.Add(it.UnitPrice.Mul(decimal.NewFromInt32(it.Quantity)))
	}

	addr, err := domain.NormalizeAddress(req.Address)
	if err != nil {
		return domain.Order{}, err
	}

	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCOD
	}
	if method != domain.PaymentMethodCOD && method != domain.PaymentMethodCard {
		return domain.Order{}, &domain.ValidationError{Message: fmt.Sprintf("unsupported payment method %q", method)}
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Items:         items,
		Amount:        amount,
		Address:       addr,
		PaymentMethod: method,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return domain.Order{}, fmt.Errorf("create order: %w", err)
	}

	s.publish(ctx, OrderEventCreated, created)
	return created, nil
}

func (s *Service) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.repo.ListByUser(ctx, userID)
}

type IntentResult struct {
	ClientSecret string
	Amount       decimal.Decimal
}

// CreatePaymentIntent requests a processor-side intent for an unpaid order
// owned by the caller. The charged amount always comes from the stored
// order, never from client input.
func (s *Service) CreatePaymentIntent(ctx context.Context, userID, orderID string) (IntentResult, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return IntentResult{}, err
	}
	if order.PaymentStatus == domain.PaymentPaid {
		return IntentResult{}, ErrAlreadyPaid
	}

	intent, err := s.processor.CreateIntent(ctx, IntentParams{
		Amount:   order.MinorUnits(),
		Currency: s.currency,
		OrderID:  order.ID,
		UserID:   userID,
	})
	if err != nil {
		return IntentResult{}, fmt.Errorf("%w: %v", ErrProcessor, err)
	}

	if err := s.repo.SetProcessorIntent(ctx, order.ID, intent.ID); err != nil {
		return IntentResult{}, fmt.Errorf("record intent %s: %w", intent.ID, err)
	}

	s.log.Info("payment intent created",
		slog.String("orderId", order.ID),
		slog.String("intentId", intent.ID),
		slog.Int64("amountMinor", order.MinorUnits()))

	return IntentResult{ClientSecret: intent.ClientSecret, Amount: order.Amount}, nil
}

// ConfirmPayment applies a client-initiated payment confirmation. The caller
// must own the order and the supplied intent ID must be the one recorded on
// it; when configured, the intent status is additionally checked against the
// processor so a bare client assertion is never enough. A confirmation
// email goes out best-effort on the first successful transition only.
func (s *Service) ConfirmPayment(ctx context.Context, userID, orderID, intentID string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, ErrUnauthenticated
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, ErrUnauthorized
	}
	if intentID == "" {
		return domain.Order{}, &domain.ValidationError{Message: "payment intent id is required"}
	}
	if order.ProcessorIntentID != "" && order.ProcessorIntentID != intentID {
		return domain.Order{}, ErrIntentMismatch
	}

	if s.verifyClientConfirm && s.processor != nil {
		intent, err := s.processor.GetIntent(ctx, intentID)
		if err != nil {
			return domain.Order{}, fmt.Errorf("%w: %v", ErrProcessor, err)
		}
		if intent.Status != IntentStatusSucceeded {
			return domain.Order{}, ErrPaymentNotSettled
		}
	}

	updated, applied, err := s.applyTransition(ctx, order, domain.EventClientConfirmed)
	if err != nil {
		return domain.Order{}, err
	}
	if applied {
		s.publish(ctx, OrderEventPaymentUpdated, updated)
		s.sendConfirmation(updated)
	}
	return updated, nil
}

// HandleProcessorEvent reconciles a webhook delivery with local order state.
// The signature is checked over the raw body before anything else is
// touched. Business outcomes (replays, unknown kinds, unknown orders,
// rejected conflicts) all succeed from the transport's point of view so the
// processor's retry policy keys purely on delivery; only storage failures
// propagate.
func (s *Service) HandleProcessorEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.events.Verify(payload, signature)
	if err != nil {
		return err
	}

	switch event.Kind {
	case ProcessorEventSucceeded:
		return s.applyProcessorOutcome(ctx, event, domain.EventProcessorSucceeded)
	case ProcessorEventFailed:
		return s.applyProcessorOutcome(ctx, event, domain.EventProcessorFailed)
	default:
		s.log.Debug("ignoring processor event", slog.String("kind", event.Kind))
		return nil
	}
}

func (s *Service) applyProcessorOutcome(ctx context.Context, event ProcessorEvent, ev domain.PaymentEvent) error {
	if event.OrderID == "" {
		s.log.Warn("processor event without order correlation",
			slog.String("eventId", event.ID), slog.String("intentId", event.IntentID))
		return nil
	}

	order, err := s.repo.Get(ctx, event.OrderID)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("processor event for unknown order",
			slog.String("eventId", event.ID), slog.String("orderId", event.OrderID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load order %s: %w", event.OrderID, err)
	}

	if order.ProcessorIntentID != "" && event.IntentID != "" && order.ProcessorIntentID != event.IntentID {
		s.log.Warn("processor event intent mismatch",
			slog.String("orderId", order.ID),
			slog.String("recordedIntent", order.ProcessorIntentID),
			slog.String("eventIntent", event.IntentID))
		return nil
	}

	updated, applied, err := s.applyTransition(ctx, order, ev)
	if errors.Is(err, ErrPaymentConflict) {
		s.log.Warn("conflicting processor outcome rejected",
			slog.String("orderId", order.ID),
			slog.String("event", string(ev)),
			slog.String("paymentStatus", string(order.PaymentStatus)))
		return nil
	}
	if err != nil {
		return err
	}
	if applied {
		s.publish(ctx, OrderEventPaymentUpdated, updated)
	}
	return nil
}

// SendConfirmationEmail resends the payment confirmation for an order,
// synchronously. Used by the explicit resend endpoint, not the payment path.
func (s *Service) SendConfirmationEmail(ctx context.Context, orderID, intentID string) error {
	if orderID == "" || intentID == "" {
		return &domain.ValidationError{Message: "missing order info"}
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if s.mailer == nil {
		return errors.New("mailer is not configured")
	}
	return s.mailer.Send(ctx, order.Address.Email, "Payment Confirmation", confirmationBody(order))
}

// applyTransition plans and applies ev with a conditional update keyed on
// the current payment status. On a lost race the order is reloaded and the
// event re-planned, so two concurrent triggers serialize per order without
// any lock. Reports whether this call actually changed state.
func (s *Service) applyTransition(ctx context.Context, order domain.Order, ev domain.PaymentEvent) (domain.Order, bool, error) {
	for attempt := 0; attempt < maxTransitionAttempts; attempt++ {
		tr, outcome := domain.PlanTransition(order, ev)
		switch outcome {
		case domain.TransitionNoop:
			return order, false, nil
		case domain.TransitionConflict:
			return order, false, fmt.Errorf("%w: %s against %s/%s",
				ErrPaymentConflict, ev, order.PaymentStatus, order.PaymentSource)
		}

		ok, err := s.repo.UpdatePaymentState(ctx, order.ID, order.PaymentStatus, tr)
		if err != nil {
			return order, false, fmt.Errorf("update order %s: %w", order.ID, err)
		}
		if ok {
			if order.PaymentStatus != domain.PaymentPending {
				s.log.Warn("processor outcome overrode client-confirmed state",
					slog.String("orderId", order.ID),
					slog.String("from", string(order.PaymentStatus)),
					slog.String("to", string(tr.PaymentStatus)))
			}
			order.PaymentStatus = tr.PaymentStatus
			order.Status = tr.Status
			order.PaymentSource = tr.Source
			order.UpdatedAt = time.Now().UTC()
			return order, true, nil
		}

		order, err = s.getOrder(ctx, order.ID)
		if err != nil {
			return order, false, err
		}
	}
	return order, false, fmt.Errorf("order %s: payment update contention", order.ID)
}

func (s *Service) getOrder(ctx context.Context, orderID string) (domain.Order, error) {
	if orderID == "" {
		return domain.Order{}, &domain.ValidationError{Message: "order id is required"}
	}
	order, err := s.repo.Get(ctx, orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, ErrNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("load order %s: %w", orderID, err)
	}
	return order, nil
}

func (s *Service) ownedOrder(ctx context.Context, userID, orderID string) (domain.Order, error) {
	if userID == "" {
		return domain.Order{}, ErrUnauthenticated
	}
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.UserID != userID {
		return domain.Order{}, ErrUnauthorized
	}
	return order, nil
}

// sendConfirmation delivers the confirmation email off the request path.
// Failures are logged, never surfaced; the payment already succeeded.
func (s *Service) sendConfirmation(order domain.Order) {
	if s.mailer == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.mailer.Send(ctx, order.Address.Email, "Payment Confirmation", confirmationBody(order)); err != nil {
			s.log.Error("confirmation email failed",
				slog.String("orderId", order.ID), slog.Any("err", err))
			return
		}
		s.log.Info("confirmation email sent",
			slog.String("orderId", order.ID), slog.String("to", order.Address.Email))
	}()
}

func (s *Service) publish(ctx context.Context, kind string, order domain.Order) {
	if s.publisher == nil {
		return
	}
	event := OrderEvent{
		Kind:          kind,
		OrderID:       order.ID,
		UserID:        order.UserID,
		PaymentStatus: order.PaymentStatus,
		Status:        order.Status,
		At:            time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error("order event publish failed",
			slog.String("kind", kind), slog.String("orderId", order.ID), slog.Any("err", err))
	}
}

func confirmationBody(order domain.Order) string {
	return fmt.Sprintf(`<h2>Payment Successful</h2>
<p>Hi %s %s,</p>
<p>Your payment for order <b>#%s</b> has been received.</p>
<p>Total amount: <b>%s</b></p>
<p>We will deliver your order soon.</p>
<br>
<p>Best regards,<br>HL Sports</p>`,
		order.Address.FirstName, order.Address.LastName, order.ID, order.Amount.StringFixed(2))
}
