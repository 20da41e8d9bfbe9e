package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/hauswerk/hauswerk/app/models"
	"github.com/hauswerk/hauswerk/app/repository"
	"github.com/hauswerk/hauswerk/internal/pkg/entitlements"
)

// Reconciler maps provider-side subscription state into internal state and
// keeps the external entitlement service loosely in sync. The subscription
// row is authoritative; entitlement sync is a best-effort downstream update
// and is never allowed to fail a handler.
type Reconciler struct {
	subs     repository.SubscriptionRepository
	plans    repository.PlanMappingRepository
	recorder *Recorder
	syncer   entitlements.TierSyncer
}

// NewReconciler creates a subscription reconciler.
func NewReconciler(
	subs repository.SubscriptionRepository,
	plans repository.PlanMappingRepository,
	recorder *Recorder,
	syncer entitlements.TierSyncer,
) *Reconciler {
	return &Reconciler{subs: subs, plans: plans, recorder: recorder, syncer: syncer}
}

// HandleCheckoutCompleted is the only path with direct access to the internal
// user ID (via session metadata), so the user linkage established here is
// load-bearing for every later lifecycle event.
func (r *Reconciler) HandleCheckoutCompleted(ctx context.Context, sess *CheckoutSession) error {
	meta, ok := ExtractCheckoutMetadata(sess)
	if !ok {
		log.Printf("payments: checkout session %s carries no user linkage, ignoring", sess.ID)
		return nil
	}
	tier := entitlements.NormalizeTier(meta.Tier)

	if sess.Mode == "payment" {
		// One-time purchase: money moved, but there is no subscription to
		// reconcile.
		r.recordCheckoutTransaction(ctx, sess, meta.UserID, models.TransactionTypeOneTime, nil)
		return nil
	}

	// Checkout can complete before the subscription-created event arrives;
	// sessions occasionally even lack the subscription ID. The placeholder
	// key keeps the user mapping durable until the real ID shows up.
	externalSubID := sess.Subscription
	if externalSubID == "" {
		externalSubID = "session:" + sess.ID
	}

	sub, err := r.subs.GetByExternalSubscriptionID(externalSubID)
	switch {
	case err == nil:
		// Lifecycle event won the race; merge only what checkout knows.
		sub.UserID = meta.UserID
		sub.Tier = string(tier)
		if meta.BillingCycle != models.BillingCycleUnknown {
			sub.BillingCycle = meta.BillingCycle
		}
		if sess.Customer != "" {
			sub.ExternalCustomerID = sess.Customer
		}
		if err := r.subs.Save(sub); err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		sub = &models.UserSubscription{
			UserID:                 meta.UserID,
			ExternalCustomerID:     sess.Customer,
			ExternalSubscriptionID: externalSubID,
			Tier:                   string(tier),
			BillingCycle:           meta.BillingCycle,
			Status:                 models.SubscriptionStatusActive,
		}
		if err := r.subs.Upsert(sub); err != nil {
			return err
		}
	default:
		return err
	}

	r.recordCheckoutTransaction(ctx, sess, meta.UserID, models.TransactionTypeSubscription, &sub.ID)
	r.syncTier(ctx, meta.UserID, tier, sub.BillingCycle)
	return nil
}

// HandleSubscriptionChanged covers both created and updated events: the
// provider reports full state either way, so both are a merge-overwrite.
func (r *Reconciler) HandleSubscriptionChanged(ctx context.Context, subObj *SubscriptionObject) error {
	status, known := MapProviderStatus(subObj.Status)
	if !known {
		log.Printf("payments: subscription %s has unmapped provider status %q, storing as-is", subObj.ID, subObj.Status)
	}

	priceID, interval := primaryPrice(subObj)

	sub, matchedByCustomer, err := r.matchSubscription(subObj.ID, subObj.Customer)
	if err != nil {
		return err
	}

	prevTier := ""
	if sub != nil {
		prevTier = sub.Tier
	}
	tier, mappedCycle := r.resolveTier(priceID, metadataTier(subObj.Metadata), prevTier)
	cycle := firstNonEmptyCycle(mappedCycle, intervalToCycle(interval))

	if sub == nil {
		// First sight of this subscription with no checkout linkage on file.
		// Without a user ID in metadata there is nothing to attach it to.
		userID := ""
		if subObj.Metadata != nil {
			userID = subObj.Metadata["user_id"]
		}
		if userID == "" {
			log.Printf("payments: subscription %s references no known user, ignoring", subObj.ID)
			return nil
		}
		sub = &models.UserSubscription{
			UserID:                 userID,
			ExternalCustomerID:     subObj.Customer,
			ExternalSubscriptionID: subObj.ID,
			Tier:                   tier,
			BillingCycle:           firstNonEmptyCycle(cycle, models.BillingCycleUnknown),
			Status:                 status,
			CurrentPeriodStart:     unixTime(subObj.CurrentPeriodStart),
			CurrentPeriodEnd:       unixTime(subObj.CurrentPeriodEnd),
			CancelAtPeriodEnd:      subObj.CancelAtPeriodEnd,
			PriceID:                priceID,
		}
		if err := r.subs.Upsert(sub); err != nil {
			return err
		}
		r.syncTier(ctx, sub.UserID, entitlements.NormalizeTier(tier), sub.BillingCycle)
		return nil
	}

	if matchedByCustomer {
		// The row was created from checkout before the provider assigned (or
		// before we saw) the real subscription ID; adopt it now.
		sub.ExternalSubscriptionID = subObj.ID
	}
	if subObj.Customer != "" {
		sub.ExternalCustomerID = subObj.Customer
	}
	sub.Status = status
	sub.Tier = tier
	if cycle != models.BillingCycleUnknown {
		sub.BillingCycle = cycle
	}
	sub.CurrentPeriodStart = unixTime(subObj.CurrentPeriodStart)
	sub.CurrentPeriodEnd = unixTime(subObj.CurrentPeriodEnd)
	sub.CancelAtPeriodEnd = subObj.CancelAtPeriodEnd
	if priceID != "" {
		sub.PriceID = priceID
	}
	if status == models.SubscriptionStatusCanceled {
		sub.CanceledAt = firstTime(unixTime(subObj.CanceledAt), unixTime(subObj.EndedAt), sub.CanceledAt)
	}
	if err := r.subs.Save(sub); err != nil {
		return err
	}

	if tier != prevTier {
		r.syncTier(ctx, sub.UserID, entitlements.NormalizeTier(tier), sub.BillingCycle)
	}
	return nil
}

// HandleSubscriptionDeleted forces the terminal canceled state and downgrades
// the user. Cancellation is authoritative regardless of the sync outcome.
func (r *Reconciler) HandleSubscriptionDeleted(ctx context.Context, subObj *SubscriptionObject) error {
	sub, _, err := r.matchSubscription(subObj.ID, subObj.Customer)
	if err != nil {
		return err
	}
	if sub == nil {
		log.Printf("payments: deletion for unknown subscription %s, ignoring", subObj.ID)
		return nil
	}

	now := time.Now().UTC()
	sub.Status = models.SubscriptionStatusCanceled
	sub.CancelAtPeriodEnd = false
	sub.CanceledAt = firstTime(unixTime(subObj.CanceledAt), unixTime(subObj.EndedAt), &now)
	if err := r.subs.Save(sub); err != nil {
		return err
	}

	r.syncTier(ctx, sub.UserID, entitlements.TierFree, sub.BillingCycle)
	return nil
}

// HandleInvoicePaid refreshes the period window and appends a renewal entry
// to the financial ledger. Invoices for subscriptions we have never seen are
// dropped with a log line; no retroactive resolution is attempted.
func (r *Reconciler) HandleInvoicePaid(ctx context.Context, inv *InvoiceObject) error {
	if inv.Subscription == "" {
		log.Printf("payments: invoice %s is not tied to a subscription, ignoring", inv.ID)
		return nil
	}

	sub, err := r.subs.GetByExternalSubscriptionID(inv.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("payments: invoice %s references unknown subscription %s, dropping", inv.ID, inv.Subscription)
			return nil
		}
		return err
	}

	start, end := invoicePeriod(inv)
	if start != nil {
		sub.CurrentPeriodStart = start
	}
	if end != nil {
		sub.CurrentPeriodEnd = end
	}
	if err := r.subs.Save(sub); err != nil {
		return err
	}

	// The initial invoice accompanies checkout completion, which already
	// recorded the transaction.
	if inv.BillingReason == "subscription_create" {
		return nil
	}

	r.recorder.Record(ctx, &models.Transaction{
		UserID:                  sub.UserID,
		AmountTotal:             inv.AmountPaid,
		Currency:                inv.Currency,
		Type:                    models.TransactionTypeSubscriptionRenewal,
		LinkedSubscriptionID:    &sub.ID,
		ExternalInvoiceID:       inv.ID,
		ExternalPaymentIntentID: inv.PaymentIntent,
	})
	return nil
}

// HandleInvoicePaymentFailed marks the subscription past_due. Failed payments
// never produce transactions; the ledger records money that moved, not
// attempts.
func (r *Reconciler) HandleInvoicePaymentFailed(ctx context.Context, inv *InvoiceObject) error {
	_ = ctx
	if inv.Subscription == "" {
		log.Printf("payments: failed invoice %s is not tied to a subscription, ignoring", inv.ID)
		return nil
	}

	sub, err := r.subs.GetByExternalSubscriptionID(inv.Subscription)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("payments: failed invoice %s references unknown subscription %s, dropping", inv.ID, inv.Subscription)
			return nil
		}
		return err
	}

	sub.Status = models.SubscriptionStatusPastDue
	return r.subs.Save(sub)
}

// matchSubscription resolves the internal row for a provider subscription:
// exact external subscription ID first, then the customer ID fallback for
// rows created from a checkout event that preceded the lifecycle event.
func (r *Reconciler) matchSubscription(externalSubID, externalCustomerID string) (*models.UserSubscription, bool, error) {
	sub, err := r.subs.GetByExternalSubscriptionID(externalSubID)
	if err == nil {
		return sub, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	if externalCustomerID == "" {
		return nil, false, nil
	}
	sub, err = r.subs.GetLatestByExternalCustomerID(externalCustomerID)
	if err == nil {
		return sub, true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	return nil, false, err
}

// resolveTier picks the internal tier for a subscription event. The
// operator-maintained price mapping wins, explicit metadata comes second,
// and the previously stored tier is kept when the event carries nothing new.
func (r *Reconciler) resolveTier(priceID, metaTier, fallback string) (tier string, mappedCycle string) {
	if priceID != "" {
		m, err := r.plans.FindActiveByPriceID(models.PaymentProviderStripe, priceID)
		if err == nil {
			return string(entitlements.NormalizeTier(m.Tier)), m.BillingCycle
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("payments: plan mapping lookup for price %s failed: %v", priceID, err)
		}
	}
	if entitlements.IsKnownTier(metaTier) {
		return string(entitlements.NormalizeTier(metaTier)), ""
	}
	if fallback != "" {
		return fallback, ""
	}
	return string(entitlements.TierFree), ""
}

// syncTier pushes the tier change to the entitlement service. Fire-and-forget
// with a bounded deadline: the result is logged, never escalated.
func (r *Reconciler) syncTier(ctx context.Context, userID string, tier entitlements.Tier, billingCycle string) {
	if r.syncer == nil || userID == "" {
		return
	}
	syncCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.syncer.UpdateTier(syncCtx, userID, tier, billingCycle); err != nil {
		log.Printf("payments: entitlement sync for user %s -> %s failed: %v", userID, tier, err)
	}
}

func (r *Reconciler) recordCheckoutTransaction(ctx context.Context, sess *CheckoutSession, userID, txnType string, linkedSubID *uint) {
	if sess.AmountTotal <= 0 {
		return
	}
	metaJSON := ""
	if len(sess.Metadata) > 0 {
		if raw, err := json.Marshal(sess.Metadata); err == nil {
			metaJSON = string(raw)
		}
	}
	r.recorder.Record(ctx, &models.Transaction{
		UserID:                  userID,
		AmountTotal:             sess.AmountTotal,
		Currency:                sess.Currency,
		Type:                    txnType,
		LinkedSubscriptionID:    linkedSubID,
		ExternalPaymentIntentID: sess.PaymentIntent,
		Metadata:                metaJSON,
	})
}

func primaryPrice(subObj *SubscriptionObject) (priceID, interval string) {
	if len(subObj.Items.Data) == 0 {
		return "", ""
	}
	price := subObj.Items.Data[0].Price
	return price.ID, price.Recurring.Interval
}

func metadataTier(metadata map[string]string) string {
	if metadata == nil {
		return ""
	}
	return metadata["tier"]
}

func intervalToCycle(interval string) string {
	switch interval {
	case "month":
		return models.BillingCycleMonthly
	case "year":
		return models.BillingCycleYearly
	default:
		return ""
	}
}

func firstNonEmptyCycle(cycles ...string) string {
	for _, c := range cycles {
		if c != "" && c != models.BillingCycleUnknown {
			return c
		}
	}
	return models.BillingCycleUnknown
}

func firstTime(candidates ...*time.Time) *time.Time {
	for _, t := range candidates {
		if t != nil {
			return t
		}
	}
	return nil
}

func invoicePeriod(inv *InvoiceObject) (*time.Time, *time.Time) {
	if len(inv.Lines.Data) > 0 {
		p := inv.Lines.Data[0].Period
		if p.Start > 0 || p.End > 0 {
			return unixTime(p.Start), unixTime(p.End)
		}
	}
	return unixTime(inv.PeriodStart), unixTime(inv.PeriodEnd)
}
