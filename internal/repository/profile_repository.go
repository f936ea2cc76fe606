package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// ProfileRepository defines persistence access for user profiles.
type ProfileRepository interface {
	// Ensure creates the profile on first sight and returns the stored row.
	Ensure(ctx context.Context, id, email string) (*domain.Profile, error)
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	// GetForUpdate locks the profile row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id string) (*domain.Profile, error)
	UpdateTier(ctx context.Context, id string, tier domain.SubscriptionTier) error
}

type profileRepository struct {
	db DBTX
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(db DBTX) ProfileRepository {
	return &profileRepository{db: db}
}

const profileColumns = `id, email, subscription_tier, is_admin, created_at, updated_at`

func (r *profileRepository) Ensure(ctx context.Context, id, email string) (*domain.Profile, error) {
	const query = `
        INSERT INTO profiles (id, email)
        VALUES ($1, $2)
        ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email
            WHERE profiles.email = '' AND EXCLUDED.email <> ''
        RETURNING ` + profileColumns

	profile, err := scanProfile(r.db.QueryRow(ctx, query, id, email))
	if errors.Is(err, pgx.ErrNoRows) {
		// conflict without update: row exists unchanged
		return r.GetByID(ctx, id)
	}
	return profile, err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1`
	return scanProfile(r.db.QueryRow(ctx, query, id))
}

func (r *profileRepository) GetForUpdate(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `SELECT ` + profileColumns + ` FROM profiles WHERE id=$1 FOR UPDATE`
	return scanProfile(r.db.QueryRow(ctx, query, id))
}

func (r *profileRepository) UpdateTier(ctx context.Context, id string, tier domain.SubscriptionTier) error {
	const query = `
        UPDATE profiles SET subscription_tier=$1, updated_at=NOW()
        WHERE id=$2`

	cmd, err := r.db.Exec(ctx, query, tier, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var profile domain.Profile
	if err := row.Scan(
		&profile.ID,
		&profile.Email,
		&profile.SubscriptionTier,
		&profile.IsAdmin,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
