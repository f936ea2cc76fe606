package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
	"github.com/fitcore/fitness-gatekeeper/internal/events"
	"github.com/fitcore/fitness-gatekeeper/internal/repository"
	"github.com/fitcore/fitness-gatekeeper/pkg/util/errorutil"
)

// Billing event types understood by the webhook.
const (
	BillingTierChanged           = "tier.changed"
	BillingSubscriptionActivated = "subscription.activated"
	BillingSubscriptionCanceled  = "subscription.canceled"
)

// BillingEvent is the webhook payload.
type BillingEvent struct {
	ID     string                  `json:"id"`
	Type   string                  `json:"type"`
	UserID string                  `json:"user_id"`
	Tier   domain.SubscriptionTier `json:"tier"`
}

// WebhookResult reports what a delivery did.
type WebhookResult struct {
	EventID   string
	Applied   bool
	Duplicate bool
}

// BillingWebhookService verifies and applies tier-change deliveries.
type BillingWebhookService struct {
	secret      []byte
	events      repository.WebhookEventRepository
	transitions *TransitionService
	logger      *zap.Logger
}

// BillingWebhookDependencies bundles collaborators for the webhook service.
type BillingWebhookDependencies struct {
	Secret      string
	Events      repository.WebhookEventRepository
	Transitions *TransitionService
	Logger      *zap.Logger
}

// NewBillingWebhookService constructs the service.
func NewBillingWebhookService(deps BillingWebhookDependencies) *BillingWebhookService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingWebhookService{
		secret:      []byte(deps.Secret),
		events:      deps.Events,
		transitions: deps.Transitions,
		logger:      logger,
	}
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature is the HMAC of body. An empty
// secret never verifies.
func (s *BillingWebhookService) VerifySignature(body []byte, signature string) bool {
	if len(s.secret) == 0 {
		return false
	}
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	given, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	return hmac.Equal(given, mac.Sum(nil))
}

// Handle verifies the raw body before decoding it. Nothing is read or written
// for a delivery whose signature does not match.
func (s *BillingWebhookService) Handle(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if !s.VerifySignature(body, signature) {
		s.logger.Warn("billing webhook rejected: signature mismatch", zap.Int("body_bytes", len(body)))
		return nil, errorutil.NewSignatureInvalid()
	}

	var event BillingEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, errorutil.NewValidationError("malformed webhook payload", nil)
	}
	tier, ok, err := event.targetTier()
	if err != nil {
		return nil, err
	}
	result := &WebhookResult{EventID: event.ID}
	if !ok {
		s.logger.Info("billing webhook ignored", zap.String("event_id", event.ID), zap.String("type", event.Type))
		return result, nil
	}

	first, err := s.events.MarkProcessed(ctx, event.ID)
	if err != nil {
		return nil, err
	}
	if !first {
		result.Duplicate = true
		s.logger.Info("billing webhook replay acknowledged", zap.String("event_id", event.ID))
		return result, nil
	}

	ctx = WithActor(ctx, events.Actor{Type: events.ActorBilling})
	if err := s.transitions.ChangeTier(ctx, event.UserID, tier, event.Type); err != nil {
		if forgetErr := s.events.Forget(ctx, event.ID); forgetErr != nil {
			s.logger.Error("billing webhook: release event id", zap.String("event_id", event.ID), zap.Error(forgetErr))
		}
		return nil, err
	}
	result.Applied = true
	return result, nil
}

// targetTier returns the tier the event asks for; ok is false for event
// types that do not affect the tier.
func (e BillingEvent) targetTier() (domain.SubscriptionTier, bool, error) {
	details := map[string]any{}
	if strings.TrimSpace(e.ID) == "" {
		details["id"] = ReasonRequired
	}
	if _, err := uuid.Parse(e.UserID); err != nil {
		details["user_id"] = ReasonWrongType
	}

	var tier domain.SubscriptionTier
	ok := true
	switch e.Type {
	case BillingTierChanged:
		tier = e.Tier
		if !tier.Valid() {
			details["tier"] = ReasonInvalidOption
		}
	case BillingSubscriptionActivated:
		tier = domain.TierPremium
	case BillingSubscriptionCanceled:
		tier = domain.TierFree
	default:
		ok = false
	}
	if len(details) > 0 {
		return "", false, errorutil.NewValidationError("malformed webhook payload", map[string]any{"fields": details})
	}
	return tier, ok, nil
}
