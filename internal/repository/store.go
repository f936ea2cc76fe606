package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fitcore/fitness-gatekeeper/internal/domain"
)

// Storage-level errors translated from Postgres constraint violations.
var (
	ErrDuplicateFieldKey       = errors.New("duplicate field key")
	ErrCurrentAssessmentExists = errors.New("user already has a current assessment")
	ErrActivePlanExists        = errors.New("user already has an active plan of this kind")
	ErrCheckViolation          = errors.New("check constraint violated")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// DBTX is the query surface shared by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories bundles the repositories bound to one connection or transaction.
type Repositories struct {
	Profiles     ProfileRepository
	Assessments  AssessmentRepository
	DietPlans    PlanRepository
	WorkoutPlans PlanRepository
	Questions    QuestionRepository
}

// Plans returns the plan repository for kind.
func (r Repositories) Plans(kind domain.PlanKind) PlanRepository {
	if kind == domain.PlanKindDiet {
		return r.DietPlans
	}
	return r.WorkoutPlans
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repositories() Repositories
	// WithinTx runs fn in one transaction; any error rolls every write back.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
	// ReadSnapshot runs fn in a read-only transaction that sees one
	// consistent snapshot of committed data.
	ReadSnapshot(ctx context.Context, fn func(repos Repositories) error) error
}

// NewRepositories binds every repository to db.
func NewRepositories(db DBTX) Repositories {
	return Repositories{
		Profiles:     NewProfileRepository(db),
		Assessments:  NewAssessmentRepository(db),
		DietPlans:    NewPlanRepository(db, domain.PlanKindDiet),
		WorkoutPlans: NewPlanRepository(db, domain.PlanKindWorkout),
		Questions:    NewQuestionRepository(db),
	}
}

type postgresStore struct {
	pool  *pgxpool.Pool
	repos Repositories
}

// NewPostgresStore returns a Store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, repos: NewRepositories(pool)}
}

func (s *postgresStore) Repositories() Repositories {
	return s.repos
}

func (s *postgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

func (s *postgresStore) ReadSnapshot(ctx context.Context, fn func(repos Repositories) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(NewRepositories(tx))
	})
}

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}
