package payments

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/hauswerk/hauswerk/app/models"
)

func TestLedgerReserveFirstDelivery(t *testing.T) {
	repo := newFakeEventRepo()
	ledger := NewLedger(repo)

	res, err := ledger.Reserve(context.Background(), models.PaymentProviderStripe, "evt_1", EventInvoicePaid, []byte(`{"id":"evt_1"}`))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if res.Duplicate || res.Retry {
		t.Fatalf("first delivery should be neither duplicate nor retry, got %+v", res)
	}
	if res.Event.ID == 0 {
		t.Error("expected a persisted row with an ID")
	}
	if res.Event.PayloadSnapshot != `{"id":"evt_1"}` {
		t.Errorf("expected payload snapshot to be stored, got %q", res.Event.PayloadSnapshot)
	}
	if res.Event.Status != models.WebhookStatusProcessing {
		t.Errorf("expected processing status, got %s", res.Event.Status)
	}
}

func TestLedgerReserveRequiresEventID(t *testing.T) {
	ledger := NewLedger(newFakeEventRepo())
	if _, err := ledger.Reserve(context.Background(), models.PaymentProviderStripe, "", EventInvoicePaid, nil); err == nil {
		t.Fatal("expected error for empty event ID")
	}
}

func TestLedgerDuplicateAfterProcessed(t *testing.T) {
	repo := newFakeEventRepo()
	ledger := NewLedger(repo)
	ctx := context.Background()

	first, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_dup", EventInvoicePaid, []byte(`{}`))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Complete(ctx, first.Event.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	second, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_dup", EventInvoicePaid, []byte(`{}`))
	if err != nil {
		t.Fatalf("reserve redelivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("redelivery of a processed event must report duplicate")
	}

	stored := repo.get("evt_dup")
	if stored == nil || stored.Status != models.WebhookStatusProcessed {
		t.Fatalf("expected the stored row to stay processed, got %+v", stored)
	}
}

func TestLedgerReclaimsFailedRow(t *testing.T) {
	repo := newFakeEventRepo()
	ledger := NewLedger(repo)
	ctx := context.Background()

	first, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_retry", EventInvoicePaid, []byte(`{}`))
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Complete(ctx, first.Event.ID, errors.New("downstream blew up")); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if stored := repo.get("evt_retry"); stored.Status != models.WebhookStatusFailed || stored.ErrorMessage == "" {
		t.Fatalf("expected failed row with error message, got %+v", stored)
	}

	second, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_retry", EventInvoicePaid, []byte(`{}`))
	if err != nil {
		t.Fatalf("reserve redelivery: %v", err)
	}
	if second.Duplicate {
		t.Fatal("a failed row must be retried, not treated as duplicate")
	}
	if !second.Retry {
		t.Fatal("expected redelivery of a failed row to report retry")
	}
	if second.Event.ID != first.Event.ID {
		t.Errorf("retry must reuse the original row, got IDs %d and %d", first.Event.ID, second.Event.ID)
	}
}

func TestLedgerReclaimsCrashedProcessingRow(t *testing.T) {
	repo := newFakeEventRepo()
	ledger := NewLedger(repo)
	ctx := context.Background()

	// Reserve without ever completing, simulating a crash mid-handler.
	if _, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_crash", EventInvoicePaid, []byte(`{}`)); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	second, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_crash", EventInvoicePaid, []byte(`{}`))
	if err != nil {
		t.Fatalf("reserve redelivery: %v", err)
	}
	if second.Duplicate || !second.Retry {
		t.Fatalf("expected retry of the stuck row, got %+v", second)
	}
}

func TestLedgerConcurrentReserveKeepsOneRow(t *testing.T) {
	repo := newFakeEventRepo()
	ledger := NewLedger(repo)
	ctx := context.Background()

	const deliveries = 16
	var wg sync.WaitGroup
	errs := make(chan error, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ledger.Reserve(ctx, models.PaymentProviderStripe, "evt_race", EventInvoicePaid, []byte(`{}`))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent reserve: %v", err)
		}
	}
	if n, _ := repo.CountByStatus(models.WebhookStatusProcessing); n != 1 {
		t.Fatalf("expected exactly one ledger row for the contested event, got %d", n)
	}
}
