package domain

// PaymentEvent is a payment outcome signal. Client confirmations and
// processor webhooks both reduce to one of these, so the first-wins and
// replay rules live in a single place.
type PaymentEvent string

const (
	EventClientConfirmed    PaymentEvent = "client_confirmed"
	EventProcessorSucceeded PaymentEvent = "processor_succeeded"
	EventProcessorFailed    PaymentEvent = "processor_failed"
)

func (e PaymentEvent) Source() PaymentSource {
	if e == EventClientConfirmed {
		return SourceClient
	}
	return SourceProcessor
}

// PaymentTransition is the state an order should move to when an event is
// applied. The repository applies it conditionally on the expected current
// payment status.
type PaymentTransition struct {
	PaymentStatus PaymentStatus
	Status        OrderStatus
	Source        PaymentSource
}

type TransitionOutcome int

const (
	// TransitionApplied: the event moves the order to a new state.
	TransitionApplied TransitionOutcome = iota
	// TransitionNoop: the order already reached the event's outcome;
	// replaying it changes nothing.
	TransitionNoop
	// TransitionConflict: the event reports an outcome conflicting with an
	// already-recorded terminal state and must not be applied.
	TransitionConflict
)

// PlanTransition decides what a payment event does to an order. paid and
// failed are absorbing: whichever trigger lands first wins, a repeat of the
// same outcome is a no-op, and a conflicting outcome is rejected - with one
// exception. A processor-reported outcome overrides a terminal state that
// was set by a client confirmation, because the processor signal cannot be
// forged while the client one is only as strong as the caller's token.
func PlanTransition(o Order, ev PaymentEvent) (PaymentTransition, TransitionOutcome) {
	var tr PaymentTransition
	switch ev {
	case EventClientConfirmed:
		tr = PaymentTransition{PaymentStatus: PaymentPaid, Status: StatusConfirmed, Source: SourceClient}
	case EventProcessorSucceeded:
		tr = PaymentTransition{PaymentStatus: PaymentPaid, Status: StatusConfirmed, Source: SourceProcessor}
	case EventProcessorFailed:
		// A failed payment never confirms fulfillment; order status stays
		// where it is.
		tr = PaymentTransition{PaymentStatus: PaymentFailed, Status: o.Status, Source: SourceProcessor}
	default:
		return PaymentTransition{}, TransitionNoop
	}

	switch {
	case o.PaymentStatus == PaymentPending:
		return tr, TransitionApplied
	case o.PaymentStatus == tr.PaymentStatus:
		return tr, TransitionNoop
	case ev.Source() == SourceProcessor && o.PaymentSource == SourceClient:
		// Processor overrides a client-asserted state. If it reports a
		// failure, the fulfillment confirmation the client obtained is
		// revoked along with it.
		if tr.PaymentStatus == PaymentFailed && o.Status == StatusConfirmed {
			tr.Status = StatusPending
		}
		return tr, TransitionApplied
	default:
		return tr, TransitionConflict
	}
}
