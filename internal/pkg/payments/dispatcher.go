package payments

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v82"
)

// HandlerFunc processes one verified, reserved event.
type HandlerFunc func(ctx context.Context, event *stripe.Event) error

// Dispatcher routes events to handlers by type. Types without a handler are
// logged and acknowledged, never rejected: the provider adds event types over
// time and rejecting them would only cause pointless redelivery.
type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(eventType string, handler HandlerFunc) {
	d.handlers[eventType] = handler
}

// Recognizes reports whether a handler is registered for the type.
func (d *Dispatcher) Recognizes(eventType string) bool {
	_, ok := d.handlers[eventType]
	return ok
}

// Dispatch invokes the handler for the event type. Handler errors and panics
// are contained here so that one failing event never produces an HTTP error
// toward the provider; the caller records the failure on the ledger row.
func (d *Dispatcher) Dispatch(ctx context.Context, event *stripe.Event) (handled bool, err error) {
	handler, ok := d.handlers[string(event.Type)]
	if !ok {
		log.Printf("payments: ignoring unhandled event type %s (id=%s)", event.Type, event.ID)
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic for %s (id=%s): %v", event.Type, event.ID, r)
		}
	}()

	if err := handler(ctx, event); err != nil {
		return true, fmt.Errorf("handle %s (id=%s): %w", event.Type, event.ID, err)
	}
	return true, nil
}
