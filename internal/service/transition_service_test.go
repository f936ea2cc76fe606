package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

func TestResetToUpsellIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)
	if _, err := f.transitions.SetToActive(ctx, userID, domain.SampleAnswers(), samplePlan(domain.PlanKindDiet), samplePlan(domain.PlanKindWorkout)); err != nil {
		t.Fatalf("SetToActive: %v", err)
	}

	for i := 0; i < 2; i++ {
		state, err := f.transitions.ResetToUpsell(ctx, userID)
		if err != nil {
			t.Fatalf("reset %d: %v", i, err)
		}
		if state != domain.StateUpsell || f.state(t, userID).State != domain.StateUpsell {
			t.Fatalf("reset %d: expected upsell", i)
		}
		if n := len(f.store.AssessmentsFor(userID)); n != 0 {
			t.Fatalf("reset %d: expected no assessments, got %d", i, n)
		}
		if n := len(f.store.PlansFor(domain.PlanKindDiet, userID)) + len(f.store.PlansFor(domain.PlanKindWorkout, userID)); n != 0 {
			t.Fatalf("reset %d: expected no plans, got %d", i, n)
		}
	}
}

func TestPendingThenActiveLeavesOneOfEach(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)

	if _, err := f.transitions.SetToPending(ctx, userID, domain.SampleAnswers()); err != nil {
		t.Fatalf("SetToPending: %v", err)
	}
	if _, err := f.transitions.SetToActive(ctx, userID, domain.SampleAnswers(), samplePlan(domain.PlanKindDiet), samplePlan(domain.PlanKindWorkout)); err != nil {
		t.Fatalf("SetToActive: %v", err)
	}

	status := f.state(t, userID)
	if status.State != domain.StateActive || !status.HasActiveDietPlan || !status.HasActiveWorkoutPlan {
		t.Fatalf("unexpected status %+v", status)
	}
	assessments := f.store.AssessmentsFor(userID)
	if len(assessments) != 1 || assessments[0].Status != domain.AssessmentActive {
		t.Fatalf("expected exactly one active assessment, got %+v", assessments)
	}
	for _, kind := range []domain.PlanKind{domain.PlanKindDiet, domain.PlanKindWorkout} {
		plans := f.store.PlansFor(kind, userID)
		if len(plans) != 1 || countActive(plans) != 1 {
			t.Fatalf("expected one active %s plan, got %+v", kind, plans)
		}
	}
}

func TestSetToActiveRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)
	if _, err := f.transitions.SetToPending(ctx, userID, domain.SampleAnswers()); err != nil {
		t.Fatalf("SetToPending: %v", err)
	}
	boom := errors.New("write failed")
	f.store.FailNext("workout_plans.Create", boom)

	_, err := f.transitions.SetToActive(ctx, userID, domain.SampleAnswers(), samplePlan(domain.PlanKindDiet), samplePlan(domain.PlanKindWorkout))
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	if got := f.state(t, userID).State; got != domain.StatePending {
		t.Fatalf("expected prior pending state to survive, got %s", got)
	}
	if n := len(f.store.PlansFor(domain.PlanKindDiet, userID)); n != 0 {
		t.Fatalf("diet plan from failed transaction leaked: %d", n)
	}
	if got := f.metrics.Snapshot().Transitions[OpSetToActive+"|error"]; got != 1 {
		t.Fatalf("expected failed transition to be counted, got %d", got)
	}
}

func TestSetToPendingValidatesBeforeWriting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)
	if _, err := f.transitions.SetToActive(ctx, userID, domain.SampleAnswers(), samplePlan(domain.PlanKindDiet), samplePlan(domain.PlanKindWorkout)); err != nil {
		t.Fatalf("SetToActive: %v", err)
	}

	_, err := f.transitions.SetToPending(ctx, userID, map[string]any{domain.KeyAge: float64(40)})
	expectCode(t, err, errorutil.CodeValidationFailed)
	if got := f.state(t, userID).State; got != domain.StateActive {
		t.Fatalf("rejected input must not touch rows, state is %s", got)
	}
}

func TestActivatePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("requires pending assessment", func(t *testing.T) {
		f := newFixture(t)
		userID := f.user(domain.TierPremium)
		_, err := f.transitions.ActivatePlan(ctx, userID, samplePlan(domain.PlanKindDiet), samplePlan(domain.PlanKindWorkout))
		expectCode(t, err, errorutil.CodeConflict)
	})

	t.Run("rejects missing plan", func(t *testing.T) {
		f := newFixture(t)
		userID := f.user(domain.TierPremium)
		_, err := f.transitions.ActivatePlan(ctx, userID, samplePlan(domain.PlanKindDiet), nil)
		fields := fieldErrors(t, err)
		if fields["workout_plan"] != ReasonRequired {
			t.Fatalf("expected workout_plan required, got %+v", fields)
		}
	})

	t.Run("pending becomes active", func(t *testing.T) {
		f := newFixture(t)
		userID := f.user(domain.TierPremium)
		if _, err := f.transitions.SetToPending(ctx, userID, domain.SampleAnswers()); err != nil {
			t.Fatalf("SetToPending: %v", err)
		}
		f.store.PutPlan(domain.Plan{UserID: userID, Kind: domain.PlanKindDiet, Title: "old", IsActive: true})

		state, err := f.transitions.ActivatePlan(ctx, userID, samplePlan(domain.PlanKindDiet), samplePlan(domain.PlanKindWorkout))
		if err != nil {
			t.Fatalf("ActivatePlan: %v", err)
		}
		if state != domain.StateActive || f.state(t, userID).State != domain.StateActive {
			t.Fatal("expected active")
		}
		if n := countActive(f.store.PlansFor(domain.PlanKindDiet, userID)); n != 1 {
			t.Fatalf("expected one active diet plan, got %d", n)
		}
		var sawActivated bool
		for _, et := range f.recorded.types() {
			if et == events.EventPlanActivated {
				sawActivated = true
			}
		}
		if !sawActivated {
			t.Fatal("expected plan_activated event")
		}
	})
}

func TestCreatePlanDeactivatesPrior(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)

	first, err := f.transitions.CreatePlan(ctx, userID, domain.PlanKindDiet, samplePlan(domain.PlanKindDiet))
	if err != nil {
		t.Fatalf("first CreatePlan: %v", err)
	}
	second, err := f.transitions.CreatePlan(ctx, userID, domain.PlanKindDiet, samplePlan(domain.PlanKindDiet))
	if err != nil {
		t.Fatalf("second CreatePlan: %v", err)
	}

	plans := f.store.PlansFor(domain.PlanKindDiet, userID)
	if len(plans) != 2 || countActive(plans) != 1 {
		t.Fatalf("expected two rows with one active, got %+v", plans)
	}
	for _, p := range plans {
		if p.ID == first.ID && p.IsActive {
			t.Fatal("prior plan left active")
		}
		if p.ID == second.ID && !p.IsActive {
			t.Fatal("new plan not active")
		}
	}
}

func TestDeactivatePlans(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)
	if _, err := f.transitions.CreatePlan(ctx, userID, domain.PlanKindWorkout, samplePlan(domain.PlanKindWorkout)); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	n, err := f.transitions.DeactivatePlans(ctx, userID, domain.PlanKindWorkout)
	if err != nil || n != 1 {
		t.Fatalf("expected one plan deactivated, got %d (%v)", n, err)
	}
	if f.state(t, userID).HasActiveWorkoutPlan {
		t.Fatal("workout plan still active")
	}

	_, err = f.transitions.DeactivatePlans(ctx, userID, domain.PlanKind("cardio"))
	expectCode(t, err, errorutil.CodeValidationFailed)
}

func TestChangeTierKeepsRows(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierPremium)
	if _, err := f.transitions.SetToPending(ctx, userID, domain.SampleAnswers()); err != nil {
		t.Fatalf("SetToPending: %v", err)
	}

	if err := f.transitions.ChangeTier(ctx, userID, domain.TierFree, "test"); err != nil {
		t.Fatalf("downgrade: %v", err)
	}
	if got := f.state(t, userID).State; got != domain.StateUpsell {
		t.Fatalf("expected upsell after downgrade, got %s", got)
	}
	if n := len(f.store.AssessmentsFor(userID)); n != 1 {
		t.Fatalf("expected assessment to be retained, got %d", n)
	}
	if err := f.transitions.ChangeTier(ctx, userID, domain.TierPremium, "test"); err != nil {
		t.Fatalf("upgrade: %v", err)
	}
	if got := f.state(t, userID).State; got != domain.StatePending {
		t.Fatalf("expected pending after upgrade, got %s", got)
	}

	err := f.transitions.ChangeTier(ctx, userID, domain.SubscriptionTier("gold"), "test")
	expectCode(t, err, errorutil.CodeValidationFailed)
}

func TestSetTestStateUsesSamples(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.user(domain.TierFree)

	for _, want := range []domain.GatekeeperState{
		domain.StatePending,
		domain.StateActive,
		domain.StateNeedsAssessment,
		domain.StateUpsell,
	} {
		got, err := f.transitions.SetTestState(ctx, userID, want, TestStateInput{})
		if err != nil {
			t.Fatalf("SetTestState(%s): %v", want, err)
		}
		if got != want || f.state(t, userID).State != want {
			t.Fatalf("SetTestState(%s) landed in %s", want, f.state(t, userID).State)
		}
	}

	_, err := f.transitions.SetTestState(ctx, userID, domain.GatekeeperState("trial"), TestStateInput{})
	expectCode(t, err, errorutil.CodeValidationFailed)
}

func TestTransitionOnMissingProfile(t *testing.T) {
	f := newFixture(t)
	_, err := f.transitions.ResetToNeedsAssessment(context.Background(), "00000000-0000-0000-0000-000000000000")
	expectCode(t, err, errorutil.CodeNotFound)
}
