package domain

import "time"

// SubscriptionTier is the billing tier recorded on a profile.
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"
	TierPremium SubscriptionTier = "premium"
)

// Valid reports whether t is a known tier.
func (t SubscriptionTier) Valid() bool {
	return t == TierFree || t == TierPremium
}

// Profile is the application-side record of an identity-provider account.
type Profile struct {
	ID               string
	Email            string
	SubscriptionTier SubscriptionTier
	IsAdmin          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
