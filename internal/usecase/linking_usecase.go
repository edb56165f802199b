package usecase

import (
	"context"
	"fmt"

	"go-brokerage-backend/internal/domain"
	"go-brokerage-backend/pkg/apperror"
)

type linkingUsecase struct {
	repo   domain.ProfileRepository
	broker domain.BrokerageClient
}

func NewLinkingUsecase(repo domain.ProfileRepository, broker domain.BrokerageClient) domain.LinkingUsecase {
	return &linkingUsecase{repo: repo, broker: broker}
}

// Link runs the provisioning workflow for one profile:
//
//	Unlinked -> Provisioning -> Linked
//	                        \-> ProvisionFailed (retry-eligible, non-fatal)
//
// The merge is an idempotent upsert keyed by email, so invoking Link again
// for an already-linked profile overwrites the snapshot fields and nothing
// else. Whatever the outcome, the returned profile is re-read from the store
// so concurrent updates are not clobbered by stale in-memory state.
func (u *linkingUsecase) Link(ctx context.Context, email string) (*domain.LinkResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.BadRequest("Email is required")
	}

	// Provisioning must not begin before a profile exists.
	profile, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, apperror.NotFound("User not found")
	}

	account, err := u.broker.GetAccount(ctx)
	if err != nil {
		// Non-fatal: the user proceeds to the dashboard without linked
		// account data. The reason is recorded for display; no automatic
		// retry.
		fmt.Printf("[Provisioning] failed for %s: %v\n", email, err)
		fresh, readErr := u.repo.GetByEmail(ctx, email)
		if readErr != nil {
			return nil, readErr
		}
		return &domain.LinkResult{
			State:         domain.LinkStateProvisionFailed,
			FailureReason: err.Error(),
			Profile:       fresh.Redacted(),
		}, nil
	}

	// Store failures, unlike upstream ones, do propagate: provisioning
	// succeeded but the link could not be persisted.
	if err := u.repo.MergeExternalAccount(ctx, email, account.ID, account.Snapshot); err != nil {
		return nil, err
	}

	fresh, err := u.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	return &domain.LinkResult{
		State:     domain.LinkStateLinked,
		AccountID: account.ID,
		Profile:   fresh.Redacted(),
	}, nil
}
