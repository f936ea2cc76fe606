package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/observability"
	"github.com/fitcore/fitness-gatekeeper/internal/repository/memory"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store       *memory.Store
	metrics     *observability.Metrics
	recorded    *recorder
	gatekeeper  *GatekeeperService
	transitions *TransitionService
	assessments *AssessmentService
	questions   *QuestionService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	dispatcher := events.NewInMemoryDispatcher()
	rec := &recorder{}
	for _, et := range []events.EventType{
		events.EventGatekeeperStateChanged,
		events.EventAssessmentSubmitted,
		events.EventPlanActivated,
		events.EventTierChanged,
		events.EventPlanReplaced,
	} {
		dispatcher.Subscribe(et, rec.handle)
	}
	metrics := observability.NewMetrics()
	return &fixture{
		store:      store,
		metrics:    metrics,
		recorded:   rec,
		gatekeeper: NewGatekeeperService(store, nil),
		transitions: NewTransitionService(TransitionDependencies{
			Store: store, Dispatcher: dispatcher, Metrics: metrics,
		}),
		assessments: NewAssessmentService(AssessmentDependencies{
			Store: store, Dispatcher: dispatcher, Metrics: metrics,
		}),
		questions: NewQuestionService(store, nil),
	}
}

func (f *fixture) user(tier domain.SubscriptionTier) string {
	id := uuid.NewString()
	f.store.PutProfile(domain.Profile{ID: id, Email: id + "@example.com", SubscriptionTier: tier})
	return id
}

func (f *fixture) state(t *testing.T, userID string) *domain.PremiumStatus {
	t.Helper()
	status, err := f.gatekeeper.GetPremiumStatus(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetPremiumStatus: %v", err)
	}
	return status
}

func samplePlan(kind domain.PlanKind) *domain.Plan {
	p := domain.SamplePlan(kind)
	return &p
}

func countActive(plans []domain.Plan) int {
	n := 0
	for _, p := range plans {
		if p.IsActive {
			n++
		}
	}
	return n
}

func fieldErrors(t *testing.T, err error) map[string]any {
	t.Helper()
	var domainErr *errorutil.DomainError
	if !errors.As(err, &domainErr) {
		t.Fatalf("expected DomainError, got %T (%v)", err, err)
	}
	fields, ok := domainErr.Details["fields"].(map[string]any)
	if !ok {
		t.Fatalf("expected field details, got %+v", domainErr.Details)
	}
	return fields
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if got := errorutil.Code(err); got != code {
		t.Fatalf("expected code %s, got %q (%v)", code, got, err)
	}
}

func floatPtr(v float64) *float64 { return &v }
