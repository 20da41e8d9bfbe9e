package payments

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stripe/stripe-go/v82"

	"github.com/hauswerk/hauswerk/app/models"
)

// Recognized provider event types. The provider adds types over time; the
// handler set is deliberately a subset and everything else is acknowledged
// without running a handler.
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaid              = "invoice.paid"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// The structs below are deliberately narrow: each handler extracts only the
// provider fields it actually depends on instead of passing the raw object
// through. Field names are the provider's wire contract.

type CheckoutSession struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	Customer      string            `json:"customer"`
	Subscription  string            `json:"subscription"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentIntent string            `json:"payment_intent"`
	Metadata      map[string]string `json:"metadata"`
}

type SubscriptionObject struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CanceledAt         int64  `json:"canceled_at"`
	EndedAt            int64  `json:"ended_at"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

type InvoiceObject struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	AmountPaid    int64  `json:"amount_paid"`
	Currency      string `json:"currency"`
	PaymentIntent string `json:"payment_intent"`
	PeriodStart   int64  `json:"period_start"`
	PeriodEnd     int64  `json:"period_end"`
	BillingReason string `json:"billing_reason"`
	Lines         struct {
		Data []struct {
			Period struct {
				Start int64 `json:"start"`
				End   int64 `json:"end"`
			} `json:"period"`
		} `json:"data"`
	} `json:"lines"`
}

func DecodeCheckoutSession(event *stripe.Event) (*CheckoutSession, error) {
	var sess CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func DecodeSubscription(event *stripe.Event) (*SubscriptionObject, error) {
	var sub SubscriptionObject
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func DecodeInvoice(event *stripe.Event) (*InvoiceObject, error) {
	var inv InvoiceObject
	if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// CheckoutMetadata is the server-owned linkage attached when the checkout
// session is created. It is the only place the internal user ID appears in
// provider traffic, so later lifecycle events depend on it having been
// stored here first.
type CheckoutMetadata struct {
	UserID       string `validate:"required,min=1,max=64"`
	Tier         string `validate:"required"`
	BillingCycle string
}

var validate = validator.New()

// ExtractCheckoutMetadata pulls the user linkage out of session metadata.
// ok=false means the session carries no usable linkage and the event should
// be acknowledged without creating anything.
func ExtractCheckoutMetadata(sess *CheckoutSession) (*CheckoutMetadata, bool) {
	if sess.Metadata == nil {
		return nil, false
	}
	meta := &CheckoutMetadata{
		UserID:       strings.TrimSpace(sess.Metadata["user_id"]),
		Tier:         strings.TrimSpace(sess.Metadata["tier"]),
		BillingCycle: normalizeBillingCycle(sess.Metadata["billing_cycle"]),
	}
	if err := validate.Struct(meta); err != nil {
		return nil, false
	}
	return meta, true
}

// MapProviderStatus maps the provider's subscription status onto the internal
// set. paused is folded into canceled; every other known status maps 1:1 by
// name. ok=false flags a status outside the known set, which callers store
// as-is rather than reject.
func MapProviderStatus(providerStatus string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(providerStatus))
	switch s {
	case "paused":
		return models.SubscriptionStatusCanceled, true
	case models.SubscriptionStatusActive,
		models.SubscriptionStatusTrialing,
		models.SubscriptionStatusPastDue,
		models.SubscriptionStatusCanceled,
		models.SubscriptionStatusUnpaid,
		models.SubscriptionStatusIncomplete,
		models.SubscriptionStatusIncompleteExpired:
		return s, true
	default:
		return s, false
	}
}

func normalizeBillingCycle(cycle string) string {
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case "monthly", "month":
		return models.BillingCycleMonthly
	case "yearly", "year", "annual":
		return models.BillingCycleYearly
	default:
		return models.BillingCycleUnknown
	}
}

func unmarshalSnapshot(snapshot string, v any) error {
	return json.Unmarshal([]byte(snapshot), v)
}

// unixTime converts a provider epoch-seconds field, where zero means unset.
func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
