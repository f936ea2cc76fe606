package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

const webhookSecret = "whsec_test"

func newWebhook(f *fixture) *BillingWebhookService {
	return NewBillingWebhookService(BillingWebhookDependencies{
		Secret:      webhookSecret,
		Events:      repository.NewMemoryWebhookEventRepository(time.Hour),
		Transitions: f.transitions,
	})
}

func tierPayload(eventID, userID string, tier domain.SubscriptionTier) []byte {
	return []byte(fmt.Sprintf(`{"id":%q,"type":"tier.changed","user_id":%q,"tier":%q}`, eventID, userID, tier))
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newFixture(t)
	hook := newWebhook(f)
	userID := f.user(domain.TierFree)
	body := tierPayload("evt_1", userID, domain.TierPremium)

	for name, sig := range map[string]string{
		"wrong secret": Sign([]byte("other"), body),
		"not hex":      "zz",
		"empty":        "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := hook.Handle(context.Background(), body, sig)
			expectCode(t, err, errorutil.CodeSignatureInvalid)
			p, _ := f.store.Profile(userID)
			if p.SubscriptionTier != domain.TierFree {
				t.Fatalf("profile mutated by unsigned delivery: %s", p.SubscriptionTier)
			}
		})
	}

	// the rejected event id must still be usable by a genuine delivery
	result, err := hook.Handle(context.Background(), body, Sign([]byte(webhookSecret), body))
	if err != nil || !result.Applied {
		t.Fatalf("expected signed delivery to apply, got %+v (%v)", result, err)
	}
}

func TestWebhookAppliesOnceAndAcknowledgesReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hook := newWebhook(f)
	userID := f.user(domain.TierFree)
	body := tierPayload("evt_2", userID, domain.TierPremium)
	sig := "sha256=" + Sign([]byte(webhookSecret), body)

	result, err := hook.Handle(ctx, body, sig)
	if err != nil || !result.Applied {
		t.Fatalf("first delivery: %+v (%v)", result, err)
	}
	if got := f.state(t, userID).State; got != domain.StateNeedsAssessment {
		t.Fatalf("expected needs_assessment after upgrade, got %s", got)
	}

	if _, err := f.transitions.ResetToUpsell(ctx, userID); err != nil {
		t.Fatalf("ResetToUpsell: %v", err)
	}
	replay, err := hook.Handle(ctx, body, sig)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Duplicate || replay.Applied {
		t.Fatalf("expected replay to be acknowledged only, got %+v", replay)
	}
	if got := f.state(t, userID).State; got != domain.StateUpsell {
		t.Fatalf("replay re-applied the tier change, state %s", got)
	}
}

func TestWebhookReleasesEventOnFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	hook := newWebhook(f)
	userID := f.user(domain.TierPremium)
	body := []byte(fmt.Sprintf(`{"id":"evt_3","type":"subscription.canceled","user_id":%q}`, userID))
	sig := Sign([]byte(webhookSecret), body)

	boom := errors.New("db down")
	f.store.FailNext("profiles.GetForUpdate", boom)
	if _, err := hook.Handle(ctx, body, sig); !errors.Is(err, boom) {
		t.Fatalf("expected storage failure, got %v", err)
	}

	result, err := hook.Handle(ctx, body, sig)
	if err != nil || !result.Applied {
		t.Fatalf("retry should apply, got %+v (%v)", result, err)
	}
	if got := f.state(t, userID).State; got != domain.StateUpsell {
		t.Fatalf("expected upsell after cancel, got %s", got)
	}
}

func TestWebhookPayloadRules(t *testing.T) {
	f := newFixture(t)
	hook := newWebhook(f)
	userID := f.user(domain.TierFree)

	t.Run("unknown type ignored", func(t *testing.T) {
		body := []byte(fmt.Sprintf(`{"id":"evt_4","type":"invoice.paid","user_id":%q}`, userID))
		result, err := hook.Handle(context.Background(), body, Sign([]byte(webhookSecret), body))
		if err != nil || result.Applied {
			t.Fatalf("expected ignored delivery, got %+v (%v)", result, err)
		}
	})

	t.Run("invalid tier", func(t *testing.T) {
		body := tierPayload("evt_5", userID, "gold")
		_, err := hook.Handle(context.Background(), body, Sign([]byte(webhookSecret), body))
		expectCode(t, err, errorutil.CodeValidationFailed)
	})

	t.Run("malformed json", func(t *testing.T) {
		body := []byte(`{"id":`)
		_, err := hook.Handle(context.Background(), body, Sign([]byte(webhookSecret), body))
		expectCode(t, err, errorutil.CodeValidationFailed)
	})
}
