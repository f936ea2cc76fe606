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

// AssessmentService handles end-user assessment submission.
type AssessmentService struct {
	uow unitOfWork
}

// AssessmentDependencies bundles collaborators for the assessment service.
type AssessmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAssessmentService constructs the service.
func NewAssessmentService(deps AssessmentDependencies) *AssessmentService {
	return &AssessmentService{uow: unitOfWork{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}}
}

// Questions returns the active catalog in display order.
func (s *AssessmentService) Questions(ctx context.Context) ([]domain.Question, error) {
	return activeCatalog(ctx, s.uow.store.Repositories().Questions)
}

// SubmitAssessment validates answers against the active catalog and stores a
// pending assessment. The ten legacy answers go through the submit_assessment
// procedure, legacy column answers are written to their columns and all other
// answers are merged into the custom bundle.
func (s *AssessmentService) SubmitAssessment(ctx context.Context, userID string, answers map[string]any) (*domain.Assessment, error) {
	catalog, err := s.Questions(ctx)
	if err != nil {
		return nil, err
	}
	normalized, err := ValidateAnswers(answers, catalog)
	if err != nil {
		return nil, err
	}
	part := domain.PartitionAnswers(normalized, catalogByKey(catalog))

	var assessmentID string
	err = s.uow.run(ctx, OpSubmitAssessment, userID, func(repos repository.Repositories) error {
		profile, err := lockProfile(ctx, repos, userID)
		if err != nil {
			return err
		}
		if profile.SubscriptionTier != domain.TierPremium {
			return errorutil.NewForbidden("a premium subscription is required to submit an assessment")
		}
		current, err := repos.Assessments.Current(ctx, userID)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
		case err != nil:
			return err
		default:
			return errorutil.NewConflict("assessment already submitted", map[string]any{"status": current.Status})
		}

		assessmentID, err = repos.Assessments.SubmitLegacy(ctx, userID, part.Procedure)
		if err != nil {
			return translateStoreError(err)
		}
		if err := repos.Assessments.UpdateLegacyColumns(ctx, assessmentID, part.Columns); err != nil {
			return err
		}
		return repos.Assessments.MergeCustomAnswers(ctx, assessmentID, part.Custom)
	})
	if err != nil {
		return nil, err
	}

	assessment := &domain.Assessment{ID: assessmentID, UserID: userID, Status: domain.AssessmentPending}
	part.Apply(assessment)
	s.uow.publish(ctx, events.EventAssessmentSubmitted, userID, events.AssessmentSubmittedPayload{
		AssessmentID: assessmentID,
		CustomKeys:   sortedKeys(part.Custom),
	})
	s.uow.stateChanged(ctx, OpSubmitAssessment, userID, domain.StatePending)
	return assessment, nil
}
