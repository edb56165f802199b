package usecase

import (
	"context"
	"strings"
	"time"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"
	"go-brokerage-backend/pkg/password"
	"go-brokerage-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type profileUsecase struct {
	repo     domain.ProfileRepository
	validate *validator.Validate
}

func NewProfileUsecase(repo domain.ProfileRepository, validate *validator.Validate) domain.ProfileUsecase {
	return &profileUsecase{
		repo:     repo,
		validate: validate,
	}
}

func (u *profileUsecase) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.Profile, error) {
	if req == nil {
		return nil, apperror.BadRequest("Missing registration payload")
	}
	req.Email = domain.NormalizeEmail(req.Email)

	if err := u.validate.Struct(req); err != nil {
		messages := validation.FormatValidationErrors(err)
		return nil, apperror.BadRequest("Validation failed: " + strings.Join(messages, "; "))
	}

	answers := req.Answers.Clone()
	// The identifier and the credential live in dedicated columns; they are
	// never stored among the answers even if a client echoes them there.
	delete(answers, "userId")
	delete(answers, "email")
	delete(answers, "password")
	if err := answers.Validate(); err != nil {
		return nil, apperror.BadRequest("Validation failed: " + err.Error())
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	now := time.Now().UTC()
	profile := &domain.Profile{
		Email:          req.Email,
		CredentialHash: hash,
		Answers:        answers,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := u.repo.Create(ctx, profile); err != nil {
		return nil, err
	}

	return profile.Redacted(), nil
}

func (u *profileUsecase) Get(ctx context.Context, email string) (*domain.Profile, error) {
	profile, err := u.repo.GetByEmail(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	// Absence is not an error here; the caller decides how to render it.
	return profile.Redacted(), nil
}

func (u *profileUsecase) Update(ctx context.Context, email string, changes domain.Answers) (*domain.Profile, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.BadRequest("User ID is required")
	}
	if len(changes) == 0 {
		return nil, apperror.BadRequest("No fields to update")
	}

	// The caller may override updated_at explicitly; everything else goes
	// through the schema check. userId/password are stripped by the store.
	var updatedAt *time.Time
	if raw, ok := changes["updatedAt"]; ok {
		if s, ok := raw.(string); ok {
			if ts, err := time.Parse(time.RFC3339, s); err == nil {
				updatedAt = &ts
			}
		}
		changes = changes.Clone()
		delete(changes, "updatedAt")
	}

	schemaChanges := changes.Clone()
	delete(schemaChanges, "userId")
	delete(schemaChanges, "email")
	delete(schemaChanges, "password")
	if err := schemaChanges.Validate(); err != nil {
		return nil, apperror.BadRequest("Validation failed: " + err.Error())
	}

	if err := u.repo.Update(ctx, email, schemaChanges, updatedAt); err != nil {
		return nil, err
	}

	refreshed, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return refreshed.Redacted(), nil
}
