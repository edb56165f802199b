package usecase

import (
	"context"
	"fmt"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"
	"go-brokerage-backend/pkg/auth"
	"go-brokerage-backend/pkg/password"
)

type authUsecase struct {
	repo   domain.ProfileRepository
	tokens *auth.TokenService
}

func NewAuthUsecase(repo domain.ProfileRepository, tokens *auth.TokenService) domain.AuthUsecase {
	return &authUsecase{repo: repo, tokens: tokens}
}

func (u *authUsecase) Login(ctx context.Context, email, pw string) (*domain.Profile, string, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || pw == "" {
		return nil, "", apperror.BadRequest("Email and password are required")
	}

	// One error shape for every failure mode below: a missing profile, a
	// profile without a credential, and a wrong password must not be
	// distinguishable from outside (user-enumeration hardening).
	invalid := apperror.Unauthorized("Invalid email or password")

	profile, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if profile == nil || profile.CredentialHash == "" {
		return nil, "", invalid
	}

	ok, err := password.Verify(pw, profile.CredentialHash)
	if err != nil {
		// Malformed stored hash: a server-side data problem, but the login
		// boundary still answers uniformly.
		fmt.Printf("[Login] malformed credential hash for %s: %v\n", email, err)
		return nil, "", invalid
	}
	if !ok {
		return nil, "", invalid
	}

	// Read-through fetch so the session reflects the latest persisted state
	// rather than the snapshot verified above.
	fresh, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if fresh == nil {
		return nil, "", invalid
	}

	token, err := u.tokens.Issue(email)
	if err != nil {
		return nil, "", apperror.Internal(err)
	}

	return fresh.Redacted(), token, nil
}

func (u *authUsecase) GetCurrentProfile(ctx context.Context, email string) (*domain.Profile, error) {
	profile, err := u.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("User not found")
	}
	return profile.Redacted(), nil
}
