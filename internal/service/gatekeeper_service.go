package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// GatekeeperService answers which experience a user should see.
type GatekeeperService struct {
	store  repository.Store
	logger *zap.Logger
}

// NewGatekeeperService constructs the service.
func NewGatekeeperService(store repository.Store, logger *zap.Logger) *GatekeeperService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GatekeeperService{store: store, logger: logger}
}

// GetPremiumStatus derives the gatekeeper state from one consistent snapshot
// of the stored facts. Storage failures are reported as unavailable rather
// than falling back to upsell.
func (s *GatekeeperService) GetPremiumStatus(ctx context.Context, userID string) (*domain.PremiumStatus, error) {
	var status *domain.PremiumStatus
	err := s.store.ReadSnapshot(ctx, func(repos repository.Repositories) error {
		var err error
		status, err = s.readStatus(ctx, repos, userID)
		return err
	})
	if err != nil {
		var domainErr *errorutil.DomainError
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, s.unavailable(userID, "snapshot", err)
	}
	return status, nil
}

func (s *GatekeeperService) readStatus(ctx context.Context, repos repository.Repositories, userID string) (*domain.PremiumStatus, error) {
	profile, err := repos.Profiles.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorutil.NewNotFound("profile", map[string]any{"user_id": userID})
		}
		return nil, s.unavailable(userID, "profile", err)
	}

	status := &domain.PremiumStatus{SubscriptionTier: profile.SubscriptionTier}
	if profile.SubscriptionTier != domain.TierPremium {
		status.State = domain.StateUpsell
		return status, nil
	}

	current, err := repos.Assessments.Current(ctx, userID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
	case err != nil:
		return nil, s.unavailable(userID, "assessment", err)
	default:
		assessmentStatus := current.Status
		status.AssessmentStatus = &assessmentStatus
	}

	if status.HasActiveDietPlan, err = repos.DietPlans.HasActive(ctx, userID); err != nil {
		return nil, s.unavailable(userID, "diet_plan", err)
	}
	if status.HasActiveWorkoutPlan, err = repos.WorkoutPlans.HasActive(ctx, userID); err != nil {
		return nil, s.unavailable(userID, "workout_plan", err)
	}

	state, err := domain.DeriveGatekeeperState(profile.SubscriptionTier, status.AssessmentStatus)
	if err != nil {
		return nil, s.unavailable(userID, "classify", err)
	}
	status.State = state
	return status, nil
}

// ActivePlans returns the user's active diet and workout plans; either may be nil.
func (s *GatekeeperService) ActivePlans(ctx context.Context, userID string) (*domain.Plan, *domain.Plan, error) {
	repos := s.store.Repositories()
	diet, err := activePlan(ctx, repos.DietPlans, userID)
	if err != nil {
		return nil, nil, err
	}
	workout, err := activePlan(ctx, repos.WorkoutPlans, userID)
	if err != nil {
		return nil, nil, err
	}
	return diet, workout, nil
}

func activePlan(ctx context.Context, plans repository.PlanRepository, userID string) (*domain.Plan, error) {
	plan, err := plans.GetActive(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return plan, err
}

func (s *GatekeeperService) unavailable(userID, stage string, err error) error {
	s.logger.Error("premium status read failed",
		zap.String("user_id", userID),
		zap.String("stage", stage),
		zap.Error(err))
	return errorutil.NewStatusUnavailable(err)
}
