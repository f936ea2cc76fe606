// Package memory implements the repository interfaces in process memory.
// Transactions snapshot the whole state and restore it when the unit of work
// fails, so partial writes are never visible. The API server falls back to it
// when no Postgres DSN is configured; tests use it as the storage double.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
)

type state struct {
	profiles    map[string]domain.Profile
	assessments map[string]domain.Assessment
	plans       map[domain.PlanKind]map[string]domain.Plan
	questions   map[string]domain.Question
}

func newState() *state {
	return &state{
		profiles:    map[string]domain.Profile{},
		assessments: map[string]domain.Assessment{},
		plans: map[domain.PlanKind]map[string]domain.Plan{
			domain.PlanKindDiet:    {},
			domain.PlanKindWorkout: {},
		},
		questions: map[string]domain.Question{},
	}
}

// clone copies the maps; stored values are replaced, never mutated in place.
func (s *state) clone() *state {
	out := newState()
	for k, v := range s.profiles {
		out.profiles[k] = v
	}
	for k, v := range s.assessments {
		out.assessments[k] = v
	}
	for kind, plans := range s.plans {
		for k, v := range plans {
			out.plans[kind][k] = v
		}
	}
	for k, v := range s.questions {
		out.questions[k] = v
	}
	return out
}

// Store is an in-memory repository.Store.
type Store struct {
	mu     sync.Mutex
	st     *state
	last   time.Time
	faults map[string]error
	hooks  map[string]func()
}

// scope says which state a bound repository reads and whether the caller
// already holds the store lock.
type scope struct {
	inTx bool
	snap *state
}

var _ repository.Store = (*Store)(nil)

// New returns a store seeded with the legacy question catalog.
func New() *Store {
	s := &Store{st: newState(), faults: map[string]error{}, hooks: map[string]func(){}}
	for _, q := range domain.LegacyQuestions() {
		q.ID = uuid.NewString()
		q.IsActive = true
		q.IsLegacy = true
		q.CreatedAt = s.tick()
		q.UpdatedAt = q.CreatedAt
		s.st.questions[q.ID] = q
	}
	return s
}

// Repositories returns repositories that each lock the store per call.
func (s *Store) Repositories() repository.Repositories {
	return s.bind(scope{})
}

// WithinTx serializes units of work and rolls back on error.
func (s *Store) WithinTx(_ context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(s.bind(scope{inTx: true})); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// ReadSnapshot runs fn against a copy of the committed state taken up front.
// Units of work that commit while fn runs are not visible to it.
func (s *Store) ReadSnapshot(_ context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	snap := s.st.clone()
	s.mu.Unlock()
	return fn(s.bind(scope{snap: snap}))
}

// BeforeNext runs fn just before the next call of op made outside a unit of
// work. fn runs without the store lock held, so it may start transactions.
func (s *Store) BeforeNext(op string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[op] = fn
}

// FailNext makes the next call of op (e.g. "workout_plans.Create") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// PutProfile inserts or replaces a profile.
func (s *Store) PutProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.SubscriptionTier == "" {
		p.SubscriptionTier = domain.TierFree
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
		p.UpdatedAt = p.CreatedAt
	}
	s.st.profiles[p.ID] = p
}

// PutAssessment stores a row without enforcing the one-current constraint.
func (s *Store) PutAssessment(a domain.Assessment) domain.Assessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.tick()
		a.UpdatedAt = a.CreatedAt
	}
	s.st.assessments[a.ID] = a
	return a
}

// PutPlan stores a plan without enforcing the one-active constraint.
func (s *Store) PutPlan(p domain.Plan) domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.tick()
	}
	s.st.plans[p.Kind][p.ID] = p
	return p
}

// Profile returns a stored profile.
func (s *Store) Profile(id string) (domain.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.profiles[id]
	return p, ok
}

// AssessmentsFor returns every assessment row for the user, oldest first.
func (s *Store) AssessmentsFor(userID string) []domain.Assessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Assessment
	for _, a := range s.st.assessments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// PlansFor returns every plan of kind for the user, oldest first.
func (s *Store) PlansFor(kind domain.PlanKind, userID string) []domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := userPlans(s.st, kind, userID)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (s *Store) bind(sc scope) repository.Repositories {
	return repository.Repositories{
		Profiles:     &profileRepo{s: s, scope: sc},
		Assessments:  &assessmentRepo{s: s, scope: sc},
		DietPlans:    &planRepo{s: s, scope: sc, kind: domain.PlanKindDiet},
		WorkoutPlans: &planRepo{s: s, scope: sc, kind: domain.PlanKindWorkout},
		Questions:    &questionRepo{s: s, scope: sc},
	}
}

func (s *Store) run(sc scope, op string, fn func(st *state) error) error {
	if !sc.inTx {
		s.mu.Lock()
		hook := s.hooks[op]
		delete(s.hooks, op)
		s.mu.Unlock()
		if hook != nil {
			hook()
		}
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return err
	}
	if sc.snap != nil {
		return fn(sc.snap)
	}
	return fn(s.st)
}

// tick returns a strictly increasing timestamp so ordering by creation is stable.
func (s *Store) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

type profileRepo struct {
	s     *Store
	scope scope
}

func (r *profileRepo) Ensure(_ context.Context, id, email string) (*domain.Profile, error) {
	var out domain.Profile
	err := r.s.run(r.scope, "profiles.Ensure", func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			now := r.s.tick()
			p = domain.Profile{ID: id, Email: email, SubscriptionTier: domain.TierFree, CreatedAt: now, UpdatedAt: now}
		} else if p.Email == "" && email != "" {
			p.Email = email
		}
		st.profiles[id] = p
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *profileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	return r.get("profiles.GetByID", id)
}

func (r *profileRepo) GetForUpdate(_ context.Context, id string) (*domain.Profile, error) {
	return r.get("profiles.GetForUpdate", id)
}

func (r *profileRepo) get(op, id string) (*domain.Profile, error) {
	var out domain.Profile
	err := r.s.run(r.scope, op, func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *profileRepo) UpdateTier(_ context.Context, id string, tier domain.SubscriptionTier) error {
	return r.s.run(r.scope, "profiles.UpdateTier", func(st *state) error {
		p, ok := st.profiles[id]
		if !ok {
			return pgx.ErrNoRows
		}
		p.SubscriptionTier = tier
		p.UpdatedAt = r.s.tick()
		st.profiles[id] = p
		return nil
	})
}

type assessmentRepo struct {
	s     *Store
	scope scope
}

func (r *assessmentRepo) Current(_ context.Context, userID string) (*domain.Assessment, error) {
	var out *domain.Assessment
	err := r.s.run(r.scope, "assessments.Current", func(st *state) error {
		for _, a := range st.assessments {
			if a.UserID != userID || !isCurrent(a.Status) {
				continue
			}
			if out == nil || currentBefore(a, *out) {
				candidate := a
				out = &candidate
			}
		}
		if out == nil {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentRepo) Create(_ context.Context, a *domain.Assessment) error {
	return r.s.run(r.scope, "assessments.Create", func(st *state) error {
		return insertAssessment(r.s, st, a)
	})
}

func (r *assessmentRepo) SubmitLegacy(_ context.Context, userID string, answers domain.LegacyAnswers) (string, error) {
	var id string
	err := r.s.run(r.scope, "assessments.SubmitLegacy", func(st *state) error {
		if answers.PrimaryGoals != nil && len([]rune(strings.TrimSpace(*answers.PrimaryGoals))) < domain.PrimaryGoalsMinLength {
			return repository.ErrCheckViolation
		}
		a := domain.Assessment{UserID: userID, Status: domain.AssessmentPending, LegacyAnswers: answers}
		if err := insertAssessment(r.s, st, &a); err != nil {
			return err
		}
		id = a.ID
		return nil
	})
	return id, err
}

func (r *assessmentRepo) UpdateLegacyColumns(_ context.Context, id string, columns map[string]any) error {
	if len(columns) == 0 {
		return nil
	}
	return r.s.run(r.scope, "assessments.UpdateLegacyColumns", func(st *state) error {
		a, ok := st.assessments[id]
		if !ok {
			return pgx.ErrNoRows
		}
		domain.AnswerPartition{Procedure: a.LegacyAnswers, Columns: columns}.Apply(&a)
		a.UpdatedAt = r.s.tick()
		st.assessments[id] = a
		return nil
	})
}

func (r *assessmentRepo) MergeCustomAnswers(_ context.Context, id string, answers map[string]any) error {
	if len(answers) == 0 {
		return nil
	}
	return r.s.run(r.scope, "assessments.MergeCustomAnswers", func(st *state) error {
		a, ok := st.assessments[id]
		if !ok {
			return pgx.ErrNoRows
		}
		merged := make(map[string]any, len(a.CustomAnswers)+len(answers))
		for k, v := range a.CustomAnswers {
			merged[k] = v
		}
		for k, v := range answers {
			merged[k] = v
		}
		a.CustomAnswers = merged
		a.UpdatedAt = r.s.tick()
		st.assessments[id] = a
		return nil
	})
}

func (r *assessmentRepo) SetStatus(_ context.Context, id string, status domain.AssessmentStatus) error {
	return r.s.run(r.scope, "assessments.SetStatus", func(st *state) error {
		a, ok := st.assessments[id]
		if !ok {
			return pgx.ErrNoRows
		}
		a.Status = status
		a.UpdatedAt = r.s.tick()
		st.assessments[id] = a
		return nil
	})
}

func (r *assessmentRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.run(r.scope, "assessments.DeleteByUser", func(st *state) error {
		for id, a := range st.assessments {
			if a.UserID == userID {
				delete(st.assessments, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func insertAssessment(s *Store, st *state, a *domain.Assessment) error {
	if _, ok := st.profiles[a.UserID]; !ok {
		return pgx.ErrNoRows
	}
	if isCurrent(a.Status) {
		for _, existing := range st.assessments {
			if existing.UserID == a.UserID && isCurrent(existing.Status) {
				return repository.ErrCurrentAssessmentExists
			}
		}
	}
	a.ID = uuid.NewString()
	a.CreatedAt = s.tick()
	a.UpdatedAt = a.CreatedAt
	st.assessments[a.ID] = *a
	return nil
}

func isCurrent(status domain.AssessmentStatus) bool {
	for _, s := range domain.CurrentAssessmentStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// currentBefore orders active before pending, then newest first.
func currentBefore(a, b domain.Assessment) bool {
	if a.Status != b.Status {
		return a.Status == domain.AssessmentActive
	}
	return a.CreatedAt.After(b.CreatedAt)
}

type planRepo struct {
	s     *Store
	scope scope
	kind  domain.PlanKind
}

func (r *planRepo) op(name string) string {
	return string(r.kind) + "_plans." + name
}

func (r *planRepo) Create(_ context.Context, plan *domain.Plan) error {
	return r.s.run(r.scope, r.op("Create"), func(st *state) error {
		if _, ok := st.profiles[plan.UserID]; !ok {
			return pgx.ErrNoRows
		}
		if plan.IsActive {
			for _, existing := range st.plans[r.kind] {
				if existing.UserID == plan.UserID && existing.IsActive {
					return repository.ErrActivePlanExists
				}
			}
		}
		plan.ID = uuid.NewString()
		plan.Kind = r.kind
		plan.CreatedAt = r.s.tick()
		st.plans[r.kind][plan.ID] = *plan
		return nil
	})
}

func (r *planRepo) GetActive(_ context.Context, userID string) (*domain.Plan, error) {
	var out *domain.Plan
	err := r.s.run(r.scope, r.op("GetActive"), func(st *state) error {
		for _, p := range userPlans(st, r.kind, userID) {
			if p.IsActive && (out == nil || p.CreatedAt.After(out.CreatedAt)) {
				candidate := p
				out = &candidate
			}
		}
		if out == nil {
			return pgx.ErrNoRows
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *planRepo) HasActive(_ context.Context, userID string) (bool, error) {
	var found bool
	err := r.s.run(r.scope, r.op("HasActive"), func(st *state) error {
		for _, p := range userPlans(st, r.kind, userID) {
			if p.IsActive {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (r *planRepo) ListByUser(_ context.Context, userID string) ([]domain.Plan, error) {
	var out []domain.Plan
	err := r.s.run(r.scope, r.op("ListByUser"), func(st *state) error {
		out = userPlans(st, r.kind, userID)
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r *planRepo) DeactivateByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.run(r.scope, r.op("DeactivateByUser"), func(st *state) error {
		for id, p := range st.plans[r.kind] {
			if p.UserID == userID && p.IsActive {
				p.IsActive = false
				st.plans[r.kind][id] = p
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *planRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.run(r.scope, r.op("DeleteByUser"), func(st *state) error {
		for id, p := range st.plans[r.kind] {
			if p.UserID == userID {
				delete(st.plans[r.kind], id)
				n++
			}
		}
		return nil
	})
	return n, err
}

func userPlans(st *state, kind domain.PlanKind, userID string) []domain.Plan {
	var out []domain.Plan
	for _, p := range st.plans[kind] {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

type questionRepo struct {
	s     *Store
	scope scope
}

func (r *questionRepo) List(_ context.Context, filter repository.QuestionFilter) ([]domain.Question, error) {
	var out []domain.Question
	err := r.s.run(r.scope, "questions.List", func(st *state) error {
		for _, q := range st.questions {
			if filter.ActiveOnly && !q.IsActive {
				continue
			}
			if filter.Section != nil && q.Section != *filter.Section {
				continue
			}
			out = append(out, q)
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].SortOrder != out[j].SortOrder {
				return out[i].SortOrder < out[j].SortOrder
			}
			return out[i].FieldKey < out[j].FieldKey
		})
		return nil
	})
	return out, err
}

func (r *questionRepo) GetByID(_ context.Context, id string) (*domain.Question, error) {
	var out domain.Question
	err := r.s.run(r.scope, "questions.GetByID", func(st *state) error {
		q, ok := st.questions[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *questionRepo) Create(_ context.Context, q *domain.Question) error {
	return r.s.run(r.scope, "questions.Create", func(st *state) error {
		if keyTaken(st, q.FieldKey, "") {
			return repository.ErrDuplicateFieldKey
		}
		q.ID = uuid.NewString()
		q.CreatedAt = r.s.tick()
		q.UpdatedAt = q.CreatedAt
		st.questions[q.ID] = *q
		return nil
	})
}

func (r *questionRepo) Update(_ context.Context, q *domain.Question) error {
	return r.s.run(r.scope, "questions.Update", func(st *state) error {
		existing, ok := st.questions[q.ID]
		if !ok {
			return pgx.ErrNoRows
		}
		if keyTaken(st, q.FieldKey, q.ID) {
			return repository.ErrDuplicateFieldKey
		}
		q.IsLegacy = existing.IsLegacy
		q.CreatedAt = existing.CreatedAt
		q.UpdatedAt = r.s.tick()
		st.questions[q.ID] = *q
		return nil
	})
}

func (r *questionRepo) Delete(_ context.Context, id string) error {
	return r.s.run(r.scope, "questions.Delete", func(st *state) error {
		if _, ok := st.questions[id]; !ok {
			return pgx.ErrNoRows
		}
		delete(st.questions, id)
		return nil
	})
}

func keyTaken(st *state, key, exceptID string) bool {
	for id, q := range st.questions {
		if id != exceptID && q.FieldKey == key {
			return true
		}
	}
	return false
}
