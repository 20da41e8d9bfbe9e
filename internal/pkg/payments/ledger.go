package payments

import (
	"context"
	"errors"

	"github.com/hauswerk/hauswerk/app/models"
	"github.com/hauswerk/hauswerk/app/repository"
)

// Reservation is the outcome of the atomic reserve step.
type Reservation struct {
	Event *models.WebhookEvent
	// Duplicate means a processed row already exists: skip all side effects
	// and acknowledge immediately.
	Duplicate bool
	// Retry means a previous attempt left the row unfinished (crash or
	// handler failure) and this delivery re-runs it. Safe because every
	// downstream handler upserts on natural keys.
	Retry bool
}

// Ledger owns the webhook_events audit trail. It is the single source of
// truth for "have we already acted on this event".
type Ledger struct {
	events repository.WebhookEventRepository
}

// NewLedger creates a ledger over the given repository.
func NewLedger(events repository.WebhookEventRepository) *Ledger {
	return &Ledger{events: events}
}

// Reserve records the event on first sight and decides who owns processing.
// The insert races against concurrent redeliveries of the same event ID; the
// unique index guarantees exactly one winner.
func (l *Ledger) Reserve(ctx context.Context, source, externalEventID, eventType string, payload []byte) (*Reservation, error) {
	_ = ctx
	if externalEventID == "" {
		return nil, errors.New("external event id is required")
	}

	event := &models.WebhookEvent{
		Source:          source,
		ExternalEventID: externalEventID,
		EventType:       eventType,
		PayloadSnapshot: string(payload),
		Status:          models.WebhookStatusProcessing,
	}
	created, stored, err := l.events.CreateIfNotExists(event)
	if err != nil {
		return nil, err
	}
	if created {
		return &Reservation{Event: stored}, nil
	}
	if stored.Status == models.WebhookStatusProcessed {
		return &Reservation{Event: stored, Duplicate: true}, nil
	}

	// A row stuck in received/processing/failed belongs to a crashed or
	// failed earlier attempt; reclaim it for this delivery.
	if err := l.events.MarkProcessing(stored.ID); err != nil {
		return nil, err
	}
	stored.Status = models.WebhookStatusProcessing
	return &Reservation{Event: stored, Retry: true}, nil
}

// Complete transitions the row to its final status for this attempt and
// records the handler error, if any.
func (l *Ledger) Complete(ctx context.Context, id uint, processingErr error) error {
	_ = ctx
	status := models.WebhookStatusProcessed
	errMsg := ""
	if processingErr != nil {
		status = models.WebhookStatusFailed
		errMsg = processingErr.Error()
	}
	return l.events.MarkOutcome(id, status, errMsg)
}
