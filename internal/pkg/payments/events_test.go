package payments

import (
	"testing"

	"github.com/stripe/stripe-go/v82"

	"github.com/hauswerk/hauswerk/app/models"
)

func TestMapProviderStatus(t *testing.T) {
	cases := []struct {
		in    string
		want  string
		known bool
	}{
		{"active", models.SubscriptionStatusActive, true},
		{"trialing", models.SubscriptionStatusTrialing, true},
		{"past_due", models.SubscriptionStatusPastDue, true},
		{"canceled", models.SubscriptionStatusCanceled, true},
		{"unpaid", models.SubscriptionStatusUnpaid, true},
		{"incomplete", models.SubscriptionStatusIncomplete, true},
		{"incomplete_expired", models.SubscriptionStatusIncompleteExpired, true},
		{"paused", models.SubscriptionStatusCanceled, true},
		{"  Active ", models.SubscriptionStatusActive, true},
		{"some_future_status", "some_future_status", false},
	}

	for _, tc := range cases {
		got, known := MapProviderStatus(tc.in)
		if got != tc.want || known != tc.known {
			t.Errorf("MapProviderStatus(%q) = (%q, %v), want (%q, %v)", tc.in, got, known, tc.want, tc.known)
		}
	}
}

func TestExtractCheckoutMetadata(t *testing.T) {
	sess := &CheckoutSession{
		ID: "cs_1",
		Metadata: map[string]string{
			"user_id":       " u1 ",
			"tier":          "pro",
			"billing_cycle": "Monthly",
		},
	}
	meta, ok := ExtractCheckoutMetadata(sess)
	if !ok {
		t.Fatal("expected metadata extraction to succeed")
	}
	if meta.UserID != "u1" {
		t.Errorf("expected trimmed user ID u1, got %q", meta.UserID)
	}
	if meta.Tier != "pro" {
		t.Errorf("expected tier pro, got %q", meta.Tier)
	}
	if meta.BillingCycle != models.BillingCycleMonthly {
		t.Errorf("expected monthly billing cycle, got %q", meta.BillingCycle)
	}
}

func TestExtractCheckoutMetadataRejectsMissingLinkage(t *testing.T) {
	cases := []struct {
		name string
		sess *CheckoutSession
	}{
		{"nil metadata", &CheckoutSession{ID: "cs_1"}},
		{"missing user_id", &CheckoutSession{ID: "cs_1", Metadata: map[string]string{"tier": "pro"}}},
		{"blank user_id", &CheckoutSession{ID: "cs_1", Metadata: map[string]string{"user_id": "   ", "tier": "pro"}}},
		{"missing tier", &CheckoutSession{ID: "cs_1", Metadata: map[string]string{"user_id": "u1"}}},
	}
	for _, tc := range cases {
		if _, ok := ExtractCheckoutMetadata(tc.sess); ok {
			t.Errorf("%s: expected extraction to fail", tc.name)
		}
	}
}

func TestNormalizeBillingCycle(t *testing.T) {
	cases := map[string]string{
		"monthly": models.BillingCycleMonthly,
		"month":   models.BillingCycleMonthly,
		"Yearly":  models.BillingCycleYearly,
		"year":    models.BillingCycleYearly,
		"annual":  models.BillingCycleYearly,
		"weekly":  models.BillingCycleUnknown,
		"":        models.BillingCycleUnknown,
	}
	for in, want := range cases {
		if got := normalizeBillingCycle(in); got != want {
			t.Errorf("normalizeBillingCycle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDecodeSubscriptionReadsNestedPrice(t *testing.T) {
	event := &stripe.Event{
		Data: &stripe.EventData{
			Raw: []byte(`{
				"id": "sub_1",
				"customer": "cus_1",
				"status": "active",
				"current_period_start": 1700000000,
				"current_period_end": 1702592000,
				"items": {"data": [{"price": {"id": "price_pro_m", "recurring": {"interval": "month"}}}]}
			}`),
		},
	}

	sub, err := DecodeSubscription(event)
	if err != nil {
		t.Fatalf("decode subscription: %v", err)
	}
	priceID, interval := primaryPrice(sub)
	if priceID != "price_pro_m" || interval != "month" {
		t.Errorf("expected (price_pro_m, month), got (%s, %s)", priceID, interval)
	}
	if ts := unixTime(sub.CurrentPeriodStart); ts == nil || ts.Unix() != 1700000000 {
		t.Errorf("unexpected period start: %v", ts)
	}
}

func TestUnixTimeTreatsZeroAsUnset(t *testing.T) {
	if unixTime(0) != nil {
		t.Error("expected nil for zero epoch")
	}
	if unixTime(-1) != nil {
		t.Error("expected nil for negative epoch")
	}
	if ts := unixTime(1700000000); ts == nil || ts.Unix() != 1700000000 {
		t.Errorf("unexpected conversion: %v", ts)
	}
}

func TestInvoicePeriodPrefersLineItems(t *testing.T) {
	inv := &InvoiceObject{PeriodStart: 100, PeriodEnd: 200}
	inv.Lines.Data = []struct {
		Period struct {
			Start int64 `json:"start"`
			End   int64 `json:"end"`
		} `json:"period"`
	}{{}}
	inv.Lines.Data[0].Period.Start = 300
	inv.Lines.Data[0].Period.End = 400

	start, end := invoicePeriod(inv)
	if start == nil || start.Unix() != 300 || end == nil || end.Unix() != 400 {
		t.Errorf("expected line item period (300, 400), got (%v, %v)", start, end)
	}

	bare := &InvoiceObject{PeriodStart: 100, PeriodEnd: 200}
	start, end = invoicePeriod(bare)
	if start == nil || start.Unix() != 100 || end == nil || end.Unix() != 200 {
		t.Errorf("expected invoice period (100, 200), got (%v, %v)", start, end)
	}
}
