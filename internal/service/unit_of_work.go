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

type actorKey struct{}

// WithActor records who is driving the operations run with ctx.
func WithActor(ctx context.Context, actor events.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func actorFrom(ctx context.Context, userID string) events.Actor {
	if actor, ok := ctx.Value(actorKey{}).(events.Actor); ok {
		return actor
	}
	return events.Actor{Type: events.ActorUser, UserID: &userID}
}

// unitOfWork runs transactional operations and publishes their events once
// the transaction has committed.
type unitOfWork struct {
	store      repository.Store
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func (u unitOfWork) run(ctx context.Context, operation, userID string, fn func(repos repository.Repositories) error) error {
	err := u.store.WithinTx(ctx, fn)
	if err != nil {
		u.metrics.RecordTransition(operation, "error")
		u.log().Warn("transition failed",
			zap.String("operation", operation),
			zap.String("user_id", userID),
			zap.Error(err))
		return err
	}
	u.metrics.RecordTransition(operation, "ok")
	u.log().Info("transition applied", zap.String("operation", operation), zap.String("user_id", userID))
	return nil
}

func (u unitOfWork) publish(ctx context.Context, eventType events.EventType, userID string, payload any) {
	if u.dispatcher == nil {
		return
	}
	event := events.NewEvent(eventType, userID, actorFrom(ctx, userID), payload)
	if err := u.dispatcher.Publish(ctx, event); err != nil {
		u.log().Warn("event handler failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

func (u unitOfWork) stateChanged(ctx context.Context, operation, userID string, state domain.GatekeeperState) {
	u.publish(ctx, events.EventGatekeeperStateChanged, userID, events.StateChangedPayload{
		Operation: operation,
		NewState:  state,
	})
}

func (u unitOfWork) log() *zap.Logger {
	if u.logger == nil {
		return zap.NewNop()
	}
	return u.logger
}

// lockProfile takes the per-user row lock every transition starts with.
func lockProfile(ctx context.Context, repos repository.Repositories, userID string) (*domain.Profile, error) {
	profile, err := repos.Profiles.GetForUpdate(ctx, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errorutil.NewNotFound("profile", map[string]any{"user_id": userID})
	}
	return profile, err
}

// clearUserRows deletes plans before assessments so no plan outlives the
// assessment it was generated for.
func clearUserRows(ctx context.Context, repos repository.Repositories, userID string) error {
	if _, err := repos.DietPlans.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if _, err := repos.WorkoutPlans.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	_, err := repos.Assessments.DeleteByUser(ctx, userID)
	return err
}

// replacePlan deactivates the user's active plan of kind and inserts plan as
// the new active one.
func replacePlan(ctx context.Context, repos repository.Repositories, userID string, kind domain.PlanKind, plan domain.Plan) (*domain.Plan, int64, error) {
	plans := repos.Plans(kind)
	deactivated, err := plans.DeactivateByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	plan.UserID = userID
	plan.Kind = kind
	plan.IsActive = true
	if err := plans.Create(ctx, &plan); err != nil {
		return nil, 0, translateStoreError(err)
	}
	return &plan, deactivated, nil
}

// translateStoreError maps storage constraint errors onto the API error classes.
func translateStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrCurrentAssessmentExists):
		return errorutil.NewConflict("a current assessment already exists", nil)
	case errors.Is(err, repository.ErrActivePlanExists):
		return errorutil.NewConflict("an active plan of this kind already exists", nil)
	case errors.Is(err, repository.ErrDuplicateFieldKey):
		return errorutil.NewCodedConflict(errorutil.CodeDuplicateFieldKey, "field key already exists", nil)
	case errors.Is(err, repository.ErrCheckViolation):
		return errorutil.NewValidationError("assessment answers are invalid", map[string]any{
			"fields": map[string]any{domain.KeyPrimaryGoals: ReasonTooShort},
		})
	}
	return err
}
