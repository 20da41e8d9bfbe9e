package payments

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/hauswerk/hauswerk/app/models"
	"github.com/hauswerk/hauswerk/internal/pkg/entitlements"
)

// In-memory repositories for pipeline tests. They preserve the contracts the
// real GORM repositories rely on: the reserve step stays atomic under
// concurrent callers, and lookups miss with gorm.ErrRecordNotFound.

type fakeEventRepo struct {
	mu     sync.Mutex
	seq    uint
	events map[string]*models.WebhookEvent // keyed by source + "|" + external event id

	failCreate  bool
	failOutcome bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{events: make(map[string]*models.WebhookEvent)}
}

func (r *fakeEventRepo) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return false, nil, errors.New("storage unavailable")
	}

	key := event.Source + "|" + event.ExternalEventID
	if stored, ok := r.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}

	r.seq++
	cp := *event
	cp.ID = r.seq
	r.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (r *fakeEventRepo) MarkProcessing(id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev := r.byID(id); ev != nil {
		ev.Status = models.WebhookStatusProcessing
	}
	return nil
}

func (r *fakeEventRepo) MarkOutcome(id uint, status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOutcome {
		return errors.New("storage unavailable")
	}
	if ev := r.byID(id); ev != nil {
		ev.Status = status
		ev.ErrorMessage = errorMessage
		ev.Attempts++
	}
	return nil
}

func (r *fakeEventRepo) GetByID(id uint) (*models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev := r.byID(id); ev != nil {
		cp := *ev
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEventRepo) ListByStatus(status string, limit int) ([]models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WebhookEvent
	for _, ev := range r.events {
		if ev.Status == status && len(out) < limit {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) ListRecent(limit int) ([]models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WebhookEvent
	for _, ev := range r.events {
		if len(out) < limit {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *fakeEventRepo) CountByStatus(status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, ev := range r.events {
		if ev.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *fakeEventRepo) byID(id uint) *models.WebhookEvent {
	for _, ev := range r.events {
		if ev.ID == id {
			return ev
		}
	}
	return nil
}

func (r *fakeEventRepo) get(externalEventID string) *models.WebhookEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ev, ok := r.events[models.PaymentProviderStripe+"|"+externalEventID]; ok {
		cp := *ev
		return &cp
	}
	return nil
}

type fakeSubRepo struct {
	mu   sync.Mutex
	seq  uint
	subs []*models.UserSubscription

	failSave bool
}

func newFakeSubRepo() *fakeSubRepo {
	return &fakeSubRepo{}
}

func (r *fakeSubRepo) Upsert(sub *models.UserSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.subs {
		if existing.ExternalSubscriptionID == sub.ExternalSubscriptionID {
			id := existing.ID
			*existing = *sub
			existing.ID = id
			sub.ID = id
			return nil
		}
	}
	r.seq++
	cp := *sub
	cp.ID = r.seq
	r.subs = append(r.subs, &cp)
	sub.ID = cp.ID
	return nil
}

func (r *fakeSubRepo) Save(sub *models.UserSubscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSave {
		return errors.New("storage unavailable")
	}
	for _, existing := range r.subs {
		if existing.ID == sub.ID {
			*existing = *sub
			return nil
		}
	}
	r.seq++
	cp := *sub
	cp.ID = r.seq
	r.subs = append(r.subs, &cp)
	sub.ID = cp.ID
	return nil
}

func (r *fakeSubRepo) GetByExternalSubscriptionID(externalSubscriptionID string) (*models.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, sub := range r.subs {
		if sub.ExternalSubscriptionID == externalSubscriptionID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubRepo) GetLatestByExternalCustomerID(externalCustomerID string) (*models.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.subs) - 1; i >= 0; i-- {
		if r.subs[i].ExternalCustomerID == externalCustomerID {
			cp := *r.subs[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeSubRepo) ListByUserID(userID string) ([]models.UserSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.UserSubscription
	for _, sub := range r.subs {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

type fakeTxnRepo struct {
	mu   sync.Mutex
	txns []models.Transaction

	failCreate bool
}

func newFakeTxnRepo() *fakeTxnRepo {
	return &fakeTxnRepo{}
}

func (r *fakeTxnRepo) Create(txn *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreate {
		return errors.New("storage unavailable")
	}
	txn.ID = uint(len(r.txns) + 1)
	r.txns = append(r.txns, *txn)
	return nil
}

func (r *fakeTxnRepo) ListByUserID(userID string, offset, limit int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, txn := range r.txns {
		if txn.UserID == userID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (r *fakeTxnRepo) Count() (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.txns)), nil
}

func (r *fakeTxnRepo) all() []models.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Transaction(nil), r.txns...)
}

type fakePlanRepo struct {
	mu       sync.Mutex
	mappings map[string]models.PlanMapping // keyed by provider + "|" + price id
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{mappings: make(map[string]models.PlanMapping)}
}

func (r *fakePlanRepo) add(m models.PlanMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[m.Provider+"|"+m.PriceID] = m
}

func (r *fakePlanRepo) FindActiveByPriceID(provider, priceID string) (*models.PlanMapping, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.mappings[provider+"|"+priceID]; ok && m.IsActive {
		return &m, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type syncCall struct {
	userID string
	tier   entitlements.Tier
	cycle  string
}

type fakeSyncer struct {
	mu    sync.Mutex
	calls []syncCall
	fail  bool
}

func (s *fakeSyncer) UpdateTier(ctx context.Context, userID string, tier entitlements.Tier, billingCycle string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, syncCall{userID: userID, tier: tier, cycle: billingCycle})
	if s.fail {
		return errors.New("entitlement service unavailable")
	}
	return nil
}

func (s *fakeSyncer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *fakeSyncer) lastCall() (syncCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.calls) == 0 {
		return syncCall{}, false
	}
	return s.calls[len(s.calls)-1], true
}
