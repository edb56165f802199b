package domain

import (
	"context"
	"strings"
	"time"
)

// Profile is the single persisted record per user: onboarding answers, the
// hashed credential, and linked brokerage-account metadata. The email doubles
// as the primary key (it is also the login identifier).
type Profile struct {
	Email            string         `json:"email"`
	CredentialHash   string         `json:"-"`
	Answers          Answers        `json:"answers"`
	AssetPreferences []string       `json:"asset_preferences,omitempty"`
	AccountID        *string        `json:"alpaca_account_id,omitempty"`
	AccountSnapshot  map[string]any `json:"alpaca_account,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Redacted returns a copy safe to hand to any caller outside the store:
// the credential hash is cleared unconditionally.
func (p *Profile) Redacted() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.CredentialHash = ""
	return &cp
}

// Linked reports whether a brokerage account has been provisioned.
func (p *Profile) Linked() bool {
	return p != nil && p.AccountID != nil && *p.AccountID != ""
}

// NormalizeEmail canonicalizes the login identifier so case variants of the
// same address cannot register twice.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the accumulated wizard output submitted at the commit
// step. Email and password travel beside the answers and never inside them.
type RegisterRequest struct {
	Email    string  `json:"userId" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=6"`
	Answers  Answers `json:"answers"`
}

type ProfileRepository interface {
	// Create inserts the profile; a duplicate email fails with Conflict and
	// leaves the existing row untouched.
	Create(ctx context.Context, profile *Profile) error

	// GetByEmail returns (nil, nil) when no profile exists.
	GetByEmail(ctx context.Context, email string) (*Profile, error)

	// Update applies a partial merge of answer keys. The email and the
	// credential hash are never modifiable through this path. updatedAt
	// overrides the refresh timestamp when non-nil.
	Update(ctx context.Context, email string, changes Answers, updatedAt *time.Time) error

	// MergeExternalAccount upserts the linked-account fields in a single
	// atomic update. Calling it again with the same account overwrites the
	// snapshot; it never accumulates a second entry.
	MergeExternalAccount(ctx context.Context, email, accountID string, snapshot map[string]any) error
}

type ProfileUsecase interface {
	Register(ctx context.Context, req *RegisterRequest) (*Profile, error)
	Get(ctx context.Context, email string) (*Profile, error)
	Update(ctx context.Context, email string, changes Answers) (*Profile, error)
}

type AuthUsecase interface {
	// Login returns the redacted profile and a session token. A missing
	// profile, a profile without a credential, and a wrong password are
	// indistinguishable to the caller.
	Login(ctx context.Context, email, password string) (*Profile, string, error)
	GetCurrentProfile(ctx context.Context, email string) (*Profile, error)
}
