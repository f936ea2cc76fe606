package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/observability"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// Operation names used in logs, metrics and events.
const (
	OpResetToUpsell          = "reset_to_upsell"
	OpResetToNeedsAssessment = "reset_to_needs_assessment"
	OpSetToPending           = "set_to_pending"
	OpSetToActive            = "set_to_active"
	OpSubmitAssessment       = "submit_assessment"
	OpActivatePlan           = "activate_plan"
	OpChangeTier             = "change_tier"
	OpCreatePlan             = "create_plan"
	OpDeactivatePlans        = "deactivate_plans"
)

// TransitionService moves users between gatekeeper states. Every operation
// runs in one transaction that starts by locking the user's profile row and
// performs the write that flips the derived state last.
type TransitionService struct {
	uow unitOfWork
}

// TransitionDependencies bundles collaborators for the transition service.
type TransitionDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewTransitionService constructs the service.
func NewTransitionService(deps TransitionDependencies) *TransitionService {
	return &TransitionService{uow: unitOfWork{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}}
}

// ResetToUpsell removes every plan and assessment and downgrades the user to free.
func (s *TransitionService) ResetToUpsell(ctx context.Context, userID string) (domain.GatekeeperState, error) {
	return s.reset(ctx, OpResetToUpsell, userID, domain.TierFree, domain.StateUpsell)
}

// ResetToNeedsAssessment removes every plan and assessment and keeps the user premium.
func (s *TransitionService) ResetToNeedsAssessment(ctx context.Context, userID string) (domain.GatekeeperState, error) {
	return s.reset(ctx, OpResetToNeedsAssessment, userID, domain.TierPremium, domain.StateNeedsAssessment)
}

func (s *TransitionService) reset(ctx context.Context, op, userID string, tier domain.SubscriptionTier, state domain.GatekeeperState) (domain.GatekeeperState, error) {
	err := s.uow.run(ctx, op, userID, func(repos repository.Repositories) error {
		if _, err := lockProfile(ctx, repos, userID); err != nil {
			return err
		}
		if err := clearUserRows(ctx, repos, userID); err != nil {
			return err
		}
		return repos.Profiles.UpdateTier(ctx, userID, tier)
	})
	if err != nil {
		return "", err
	}
	s.uow.stateChanged(ctx, op, userID, state)
	return state, nil
}

// SetToPending replaces the user's rows with one pending assessment built from answers.
func (s *TransitionService) SetToPending(ctx context.Context, userID string, answers map[string]any) (domain.GatekeeperState, error) {
	assessment, err := s.buildAssessment(ctx, answers, domain.AssessmentPending)
	if err != nil {
		return "", err
	}
	assessment.UserID = userID

	err = s.uow.run(ctx, OpSetToPending, userID, func(repos repository.Repositories) error {
		if _, err := lockProfile(ctx, repos, userID); err != nil {
			return err
		}
		if err := clearUserRows(ctx, repos, userID); err != nil {
			return err
		}
		if err := repos.Profiles.UpdateTier(ctx, userID, domain.TierPremium); err != nil {
			return err
		}
		return translateStoreError(repos.Assessments.Create(ctx, assessment))
	})
	if err != nil {
		return "", err
	}
	s.uow.stateChanged(ctx, OpSetToPending, userID, domain.StatePending)
	return domain.StatePending, nil
}

// SetToActive replaces the user's rows with an active assessment and active plans.
func (s *TransitionService) SetToActive(ctx context.Context, userID string, answers map[string]any, diet, workout *domain.Plan) (domain.GatekeeperState, error) {
	problems := validatePlan("diet_plan", diet)
	for k, v := range validatePlan("workout_plan", workout) {
		problems.add(k, v)
	}
	if err := problems.err("plans are invalid"); err != nil {
		return "", err
	}
	assessment, err := s.buildAssessment(ctx, answers, domain.AssessmentActive)
	if err != nil {
		return "", err
	}
	assessment.UserID = userID

	err = s.uow.run(ctx, OpSetToActive, userID, func(repos repository.Repositories) error {
		if _, err := lockProfile(ctx, repos, userID); err != nil {
			return err
		}
		if err := clearUserRows(ctx, repos, userID); err != nil {
			return err
		}
		if err := repos.Profiles.UpdateTier(ctx, userID, domain.TierPremium); err != nil {
			return err
		}
		if _, _, err := replacePlan(ctx, repos, userID, domain.PlanKindDiet, *diet); err != nil {
			return err
		}
		if _, _, err := replacePlan(ctx, repos, userID, domain.PlanKindWorkout, *workout); err != nil {
			return err
		}
		return translateStoreError(repos.Assessments.Create(ctx, assessment))
	})
	if err != nil {
		return "", err
	}
	s.uow.stateChanged(ctx, OpSetToActive, userID, domain.StateActive)
	return domain.StateActive, nil
}

// ActivatePlan attaches a diet and a workout plan to the user's pending
// assessment and marks it active.
func (s *TransitionService) ActivatePlan(ctx context.Context, userID string, diet, workout *domain.Plan) (domain.GatekeeperState, error) {
	problems := validatePlan("diet_plan", diet)
	for k, v := range validatePlan("workout_plan", workout) {
		problems.add(k, v)
	}
	if err := problems.err("plans are invalid"); err != nil {
		return "", err
	}

	var payload events.PlanActivatedPayload
	err := s.uow.run(ctx, OpActivatePlan, userID, func(repos repository.Repositories) error {
		if _, err := lockProfile(ctx, repos, userID); err != nil {
			return err
		}
		current, err := repos.Assessments.Current(ctx, userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return errorutil.NewConflict("no pending assessment to activate", nil)
		}
		if err != nil {
			return err
		}
		if current.Status != domain.AssessmentPending {
			return errorutil.NewConflict("assessment is not pending", map[string]any{"status": current.Status})
		}
		dietPlan, _, err := replacePlan(ctx, repos, userID, domain.PlanKindDiet, *diet)
		if err != nil {
			return err
		}
		workoutPlan, _, err := replacePlan(ctx, repos, userID, domain.PlanKindWorkout, *workout)
		if err != nil {
			return err
		}
		payload = events.PlanActivatedPayload{
			AssessmentID:  current.ID,
			DietPlanID:    dietPlan.ID,
			WorkoutPlanID: workoutPlan.ID,
		}
		return repos.Assessments.SetStatus(ctx, current.ID, domain.AssessmentActive)
	})
	if err != nil {
		return "", err
	}
	s.uow.publish(ctx, events.EventPlanActivated, userID, payload)
	s.uow.stateChanged(ctx, OpActivatePlan, userID, domain.StateActive)
	return domain.StateActive, nil
}

// ChangeTier updates only the subscription tier. Assessment and plan rows are
// kept so a returning subscriber resumes where they left off.
func (s *TransitionService) ChangeTier(ctx context.Context, userID string, tier domain.SubscriptionTier, source string) error {
	if !tier.Valid() {
		return errorutil.NewValidationError("unknown subscription tier", map[string]any{"tier": tier})
	}
	var oldTier domain.SubscriptionTier
	err := s.uow.run(ctx, OpChangeTier, userID, func(repos repository.Repositories) error {
		profile, err := lockProfile(ctx, repos, userID)
		if err != nil {
			return err
		}
		oldTier = profile.SubscriptionTier
		if oldTier == tier {
			return nil
		}
		return repos.Profiles.UpdateTier(ctx, userID, tier)
	})
	if err != nil {
		return err
	}
	if oldTier != tier {
		s.uow.publish(ctx, events.EventTierChanged, userID, events.TierChangedPayload{
			OldTier: oldTier,
			NewTier: tier,
			Source:  source,
		})
	}
	return nil
}

// CreatePlan makes plan the user's only active plan of kind.
func (s *TransitionService) CreatePlan(ctx context.Context, userID string, kind domain.PlanKind, plan *domain.Plan) (*domain.Plan, error) {
	if !kind.Valid() {
		return nil, errorutil.NewValidationError("unknown plan kind", map[string]any{"kind": kind})
	}
	if err := validatePlan("plan", plan).err("plan is invalid"); err != nil {
		return nil, err
	}

	var created *domain.Plan
	var deactivated int64
	err := s.uow.run(ctx, OpCreatePlan, userID, func(repos repository.Repositories) error {
		if _, err := lockProfile(ctx, repos, userID); err != nil {
			return err
		}
		var err error
		created, deactivated, err = replacePlan(ctx, repos, userID, kind, *plan)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.uow.publish(ctx, events.EventPlanReplaced, userID, events.PlanReplacedPayload{
		Kind:        kind,
		PlanID:      created.ID,
		Deactivated: deactivated,
	})
	return created, nil
}

// DeactivatePlans marks every plan of kind inactive and returns how many changed.
func (s *TransitionService) DeactivatePlans(ctx context.Context, userID string, kind domain.PlanKind) (int64, error) {
	if !kind.Valid() {
		return 0, errorutil.NewValidationError("unknown plan kind", map[string]any{"kind": kind})
	}
	var deactivated int64
	err := s.uow.run(ctx, OpDeactivatePlans, userID, func(repos repository.Repositories) error {
		if _, err := lockProfile(ctx, repos, userID); err != nil {
			return err
		}
		var err error
		deactivated, err = repos.Plans(kind).DeactivateByUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.uow.publish(ctx, events.EventPlanReplaced, userID, events.PlanReplacedPayload{Kind: kind, Deactivated: deactivated})
	return deactivated, nil
}

// TestStateInput optionally overrides the sample data used by SetTestState.
type TestStateInput struct {
	Answers     map[string]any
	DietPlan    *domain.Plan
	WorkoutPlan *domain.Plan
}

// SetTestState forces a user into state for manual testing, filling in sample
// answers and plans when none are supplied.
func (s *TransitionService) SetTestState(ctx context.Context, userID string, state domain.GatekeeperState, input TestStateInput) (domain.GatekeeperState, error) {
	answers := input.Answers
	if len(answers) == 0 {
		answers = domain.SampleAnswers()
	}
	switch state {
	case domain.StateUpsell:
		return s.ResetToUpsell(ctx, userID)
	case domain.StateNeedsAssessment:
		return s.ResetToNeedsAssessment(ctx, userID)
	case domain.StatePending:
		return s.SetToPending(ctx, userID, answers)
	case domain.StateActive:
		diet, workout := input.DietPlan, input.WorkoutPlan
		if diet == nil {
			sample := domain.SamplePlan(domain.PlanKindDiet)
			diet = &sample
		}
		if workout == nil {
			sample := domain.SamplePlan(domain.PlanKindWorkout)
			workout = &sample
		}
		return s.SetToActive(ctx, userID, answers, diet, workout)
	}
	return "", errorutil.NewValidationError("unknown gatekeeper state", map[string]any{"state": state})
}

func (s *TransitionService) buildAssessment(ctx context.Context, answers map[string]any, status domain.AssessmentStatus) (*domain.Assessment, error) {
	catalog, err := activeCatalog(ctx, s.uow.store.Repositories().Questions)
	if err != nil {
		return nil, err
	}
	normalized, err := ValidateAnswers(answers, catalog)
	if err != nil {
		return nil, err
	}
	assessment := &domain.Assessment{Status: status}
	domain.PartitionAnswers(normalized, catalogByKey(catalog)).Apply(assessment)
	return assessment, nil
}
