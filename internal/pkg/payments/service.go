package payments

import (
	"context"
	"fmt"
	"log"

	"github.com/stripe/stripe-go/v82"
	"gorm.io/gorm"

	"github.com/hauswerk/hauswerk/app/models"
	"github.com/hauswerk/hauswerk/app/repository"
	"github.com/hauswerk/hauswerk/internal/pkg/entitlements"
	"github.com/hauswerk/hauswerk/internal/pkg/statistics"
)

// Result summarizes one pipeline run for the HTTP acknowledgment.
type Result struct {
	EventID    string
	EventType  string
	Processed  bool
	Duplicate  bool
	HandlerErr error
}

// Service is the payment-event ingestion pipeline: verify -> reserve ->
// dispatch -> complete. Requests for distinct event IDs run concurrently;
// the only mutual exclusion is the ledger's atomic reserve.
type Service struct {
	verifier   *Verifier
	ledger     *Ledger
	dispatcher *Dispatcher
	reconciler *Reconciler
	stats      func(eventType, outcome string)
}

// Config wires the service together. Everything is an interface so tests can
// swap in in-memory fakes while preserving the atomicity contract.
type Config struct {
	WebhookSecret string
	Events        repository.WebhookEventRepository
	Subscriptions repository.SubscriptionRepository
	Transactions  repository.TransactionRepository
	PlanMappings  repository.PlanMappingRepository
	Syncer        entitlements.TierSyncer
	Stats         func(eventType, outcome string)
}

// NewService builds the pipeline from explicit dependencies.
func NewService(cfg Config) *Service {
	recorder := NewRecorder(cfg.Transactions)
	reconciler := NewReconciler(cfg.Subscriptions, cfg.PlanMappings, recorder, cfg.Syncer)

	s := &Service{
		verifier:   NewVerifier(cfg.WebhookSecret),
		ledger:     NewLedger(cfg.Events),
		dispatcher: NewDispatcher(),
		reconciler: reconciler,
		stats:      cfg.Stats,
	}
	s.registerHandlers()
	return s
}

// NewServiceFromDB builds the production pipeline: GORM repositories, the
// entitlement client and Redis ingestion counters.
func NewServiceFromDB(db *gorm.DB) *Service {
	repos := repository.NewRepositories(db)
	svc := NewService(Config{
		Events:        repos.WebhookEvent,
		Subscriptions: repos.Subscription,
		Transactions:  repos.Transaction,
		PlanMappings:  repos.PlanMapping,
		Syncer:        entitlements.NewClientFromEnv(),
		Stats:         statistics.RecordWebhookOutcome,
	})
	svc.verifier = NewVerifierFromEnv()
	return svc
}

func (s *Service) registerHandlers() {
	s.dispatcher.Register(EventCheckoutSessionCompleted, func(ctx context.Context, event *stripe.Event) error {
		sess, err := DecodeCheckoutSession(event)
		if err != nil {
			return fmt.Errorf("decode checkout session: %w", err)
		}
		return s.reconciler.HandleCheckoutCompleted(ctx, sess)
	})

	subscriptionChanged := func(ctx context.Context, event *stripe.Event) error {
		sub, err := DecodeSubscription(event)
		if err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.reconciler.HandleSubscriptionChanged(ctx, sub)
	}
	s.dispatcher.Register(EventSubscriptionCreated, subscriptionChanged)
	s.dispatcher.Register(EventSubscriptionUpdated, subscriptionChanged)

	s.dispatcher.Register(EventSubscriptionDeleted, func(ctx context.Context, event *stripe.Event) error {
		sub, err := DecodeSubscription(event)
		if err != nil {
			return fmt.Errorf("decode subscription: %w", err)
		}
		return s.reconciler.HandleSubscriptionDeleted(ctx, sub)
	})

	s.dispatcher.Register(EventInvoicePaid, func(ctx context.Context, event *stripe.Event) error {
		inv, err := DecodeInvoice(event)
		if err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.reconciler.HandleInvoicePaid(ctx, inv)
	})

	s.dispatcher.Register(EventInvoicePaymentFailed, func(ctx context.Context, event *stripe.Event) error {
		inv, err := DecodeInvoice(event)
		if err != nil {
			return fmt.Errorf("decode invoice: %w", err)
		}
		return s.reconciler.HandleInvoicePaymentFailed(ctx, inv)
	})
}

// Process runs one inbound delivery through the pipeline.
//
// Error return values are reserved for the cases that must surface as non-200
// responses (verification failures, ledger storage failures); handler
// failures are absorbed into the Result and the ledger row so the provider
// does not hammer a deterministically failing event with retries.
func (s *Service) Process(ctx context.Context, payload []byte, signatureHeader string) (*Result, error) {
	event, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		return nil, err
	}

	res := &Result{EventID: event.ID, EventType: string(event.Type)}

	reservation, err := s.ledger.Reserve(ctx, models.PaymentProviderStripe, event.ID, string(event.Type), payload)
	if err != nil {
		// Storage unavailable: abort with a retryable error so the provider
		// redelivers once the ledger is reachable again.
		return nil, fmt.Errorf("ledger reserve for %s: %w", event.ID, err)
	}
	if reservation.Duplicate {
		res.Duplicate = true
		s.count(res.EventType, "duplicate")
		return res, nil
	}
	if reservation.Retry {
		log.Printf("payments: retrying event %s after unfinished earlier attempt", event.ID)
	}

	_, handlerErr := s.dispatcher.Dispatch(ctx, event)
	if err := s.ledger.Complete(ctx, reservation.Event.ID, handlerErr); err != nil {
		return nil, fmt.Errorf("ledger complete for %s: %w", event.ID, err)
	}

	if handlerErr != nil {
		log.Printf("payments: %v", handlerErr)
		res.HandlerErr = handlerErr
		s.count(res.EventType, "failed")
		return res, nil
	}

	res.Processed = true
	s.count(res.EventType, "processed")
	return res, nil
}

// Replay re-runs a stored event from its payload snapshot. The snapshot was
// signature-verified at receipt time, so no re-verification happens here.
func (s *Service) Replay(ctx context.Context, stored *models.WebhookEvent) (*Result, error) {
	var event stripe.Event
	if err := unmarshalSnapshot(stored.PayloadSnapshot, &event); err != nil {
		return nil, fmt.Errorf("decode payload snapshot for event %d: %w", stored.ID, err)
	}

	res := &Result{EventID: event.ID, EventType: string(event.Type)}
	_, handlerErr := s.dispatcher.Dispatch(ctx, &event)
	if err := s.ledger.Complete(ctx, stored.ID, handlerErr); err != nil {
		return nil, fmt.Errorf("ledger complete for replayed event %d: %w", stored.ID, err)
	}
	if handlerErr != nil {
		res.HandlerErr = handlerErr
		s.count(res.EventType, "replay_failed")
		return res, nil
	}
	res.Processed = true
	s.count(res.EventType, "replayed")
	return res, nil
}

func (s *Service) count(eventType, outcome string) {
	if s.stats != nil {
		s.stats(eventType, outcome)
	}
}
