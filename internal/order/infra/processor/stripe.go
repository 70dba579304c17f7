// Package processor adapts the Stripe client onto the application's
// payment ports.
package processor

import (
	"context"
	"fmt"

	"github.com/Levanhoa23/HL-Sports-Server1/internal/order/app"
	"github.com/Levanhoa23/HL-Sports-Server1/internal/payment/stripe"
)

type Stripe struct {
	client   *stripe.Client
	verifier *stripe.WebhookVerifier
}

func NewStripe(client *stripe.Client, verifier *stripe.WebhookVerifier) *Stripe {
	return &Stripe{client: client, verifier: verifier}
}

func (s *Stripe) CreateIntent(ctx context.Context, params app.IntentParams) (app.PaymentIntent, error) {
	intent, err := s.client.CreatePaymentIntent(ctx, stripe.CreateIntentParams{
		Amount:   params.Amount,
		Currency: params.Currency,
		Metadata: map[string]string{
			"orderId": params.OrderID,
			"userId":  params.UserID,
		},
	})
	if err != nil {
		return app.PaymentIntent{}, err
	}
	return toAppIntent(intent), nil
}

func (s *Stripe) GetIntent(ctx context.Context, id string) (app.PaymentIntent, error) {
	intent, err := s.client.GetPaymentIntent(ctx, id)
	if err != nil {
		return app.PaymentIntent{}, err
	}
	return toAppIntent(intent), nil
}

// Verify authenticates a raw webhook body and maps the event's correlation
// metadata back onto the local order identifiers.
func (s *Stripe) Verify(payload []byte, signature string) (app.ProcessorEvent, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		return app.ProcessorEvent{}, fmt.Errorf("%w: %v", app.ErrInvalidSignature, err)
	}
	obj := event.Data.Object
	return app.ProcessorEvent{
		ID:       event.ID,
		Kind:     event.Type,
		IntentID: obj.ID,
		OrderID:  obj.Metadata["orderId"],
		UserID:   obj.Metadata["userId"],
	}, nil
}

func toAppIntent(intent stripe.PaymentIntent) app.PaymentIntent {
	return app.PaymentIntent{
		ID:           intent.ID,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
		Amount:       intent.Amount,
	}
}
