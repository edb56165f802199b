package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// PostgreSQL error codes
const (
	pgUniqueViolation = "23505"
)

type profileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) domain.ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	answersJSON, err := json.Marshal(profile.Answers)
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to encode answers: %w", err))
	}

	// asset_preferences is promoted out of the JSONB so the dashboard can
	// filter on it without unpacking answers.
	prefs := profile.Answers.StringList(domain.KeyAssets)

	query := `INSERT INTO profiles (email, credential_hash, answers, asset_preferences, created_at, updated_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.db.Exec(ctx, query,
		profile.Email, profile.CredentialHash, answersJSON, pq.Array(prefs),
		profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperror.Conflict("User already exists with this email")
		}
		return apperror.Internal(err)
	}

	profile.AssetPreferences = prefs
	return nil
}

func (r *profileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	query := `SELECT email, credential_hash, answers, asset_preferences,
                     alpaca_account_id, alpaca_account, created_at, updated_at
              FROM profiles WHERE email = $1`

	var (
		profile      domain.Profile
		answersJSON  []byte
		snapshotJSON []byte
	)
	err := r.db.QueryRow(ctx, query, email).Scan(
		&profile.Email, &profile.CredentialHash, &answersJSON,
		pq.Array(&profile.AssetPreferences),
		&profile.AccountID, &snapshotJSON,
		&profile.CreatedAt, &profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperror.Internal(err)
	}

	if len(answersJSON) > 0 {
		if err := json.Unmarshal(answersJSON, &profile.Answers); err != nil {
			return nil, apperror.Internal(fmt.Errorf("failed to decode answers: %w", err))
		}
	}
	if profile.Answers == nil {
		profile.Answers = domain.Answers{}
	}
	if len(snapshotJSON) > 0 {
		if err := json.Unmarshal(snapshotJSON, &profile.AccountSnapshot); err != nil {
			return nil, apperror.Internal(fmt.Errorf("failed to decode account snapshot: %w", err))
		}
	}

	return &profile, nil
}

func (r *profileRepo) Update(ctx context.Context, email string, changes domain.Answers, updatedAt *time.Time) error {
	// Hardcoded exclusion: the identifier and the credential never change
	// through a partial update, whatever the caller sent.
	merged := changes.Clone()
	delete(merged, "userId")
	delete(merged, "email")
	delete(merged, "password")

	changesJSON, err := json.Marshal(merged)
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to encode update: %w", err))
	}

	stamp := time.Now().UTC()
	if updatedAt != nil {
		stamp = *updatedAt
	}

	// One statement per call: the JSONB concatenation merges only the
	// supplied keys, so concurrent updates cannot interleave partial writes.
	query := `UPDATE profiles
              SET answers = COALESCE(answers, '{}'::jsonb) || $2::jsonb,
                  asset_preferences = CASE WHEN $3 THEN $4 ELSE asset_preferences END,
                  updated_at = $5
              WHERE email = $1`

	_, touchesAssets := merged[domain.KeyAssets]
	tag, err := r.db.Exec(ctx, query, email, changesJSON,
		touchesAssets, pq.Array(merged.StringList(domain.KeyAssets)), stamp)
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("User not found")
	}
	return nil
}

func (r *profileRepo) MergeExternalAccount(ctx context.Context, email, accountID string, snapshot map[string]any) error {
	snapshotJSON, err := json.Marshal(snapshot)
	if err != nil {
		return apperror.Internal(fmt.Errorf("failed to encode account snapshot: %w", err))
	}

	// Idempotent upsert of the two linked-account fields: a repeat call for
	// the same email overwrites the snapshot, it never appends.
	query := `UPDATE profiles
              SET alpaca_account_id = $2,
                  alpaca_account = $3,
                  updated_at = $4
              WHERE email = $1`
	tag, err := r.db.Exec(ctx, query, email, accountID, snapshotJSON, time.Now().UTC())
	if err != nil {
		return apperror.Internal(err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("User not found")
	}
	return nil
}
