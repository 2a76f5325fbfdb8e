package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ssogate/ssogate/internal/models"
	"github.com/ssogate/ssogate/internal/users"
)

// Outcome names how a profile was reconciled onto a local user.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
)

// ErrMissingEmail is returned when an unlinked profile carries no email:
// without one the email-uniqueness check can neither match nor create
// safely, so this is a distinct outcome rather than a null-key lookup.
var ErrMissingEmail = errors.New("profile has no email")

// ConflictError reports that another account already owns the profile's
// email. The gateway never silently merges identities across providers.
type ConflictError struct {
	Existing *models.User
}

func (e *ConflictError) Error() string {
	return "email already exists"
}

// Reconciler maps a verified external profile onto exactly one local user.
type Reconciler struct {
	repo users.Repository
	now  func() time.Time
}

func NewReconciler(repo users.Repository) *Reconciler {
	return &Reconciler{repo: repo, now: time.Now}
}

// Reconcile decides between updating the already-linked user, rejecting an
// email collision, or creating a new user. Any repository I/O error is
// propagated wrapped; no partial mutation happens beyond the single failed
// call.
func (r *Reconciler) Reconcile(ctx context.Context, p *Profile) (*models.User, Outcome, error) {
	if !models.ValidProvider(p.Provider) {
		return nil, "", fmt.Errorf("unknown provider %q", p.Provider)
	}

	linked, err := r.repo.FindByProviderID(ctx, p.Provider, p.ExternalID)
	if err != nil {
		return nil, "", fmt.Errorf("lookup by provider id: %w", err)
	}
	if linked != nil {
		// Returning user on an already-linked provider account. The linked
		// identity is authoritative for email uniqueness; only name,
		// photo and verification state are refreshed.
		linked.Name = p.DisplayName
		linked.Photo = p.Photo
		linked.EmailVerifiedAt = r.verifiedAt(p)
		updated, err := r.repo.Update(ctx, linked)
		if err != nil {
			return nil, "", fmt.Errorf("update user: %w", err)
		}
		return updated, OutcomeUpdated, nil
	}

	if p.Email == "" {
		return nil, "", ErrMissingEmail
	}

	owner, err := r.repo.FindByEmail(ctx, p.Email)
	if err != nil {
		return nil, "", fmt.Errorf("lookup by email: %w", err)
	}
	if owner != nil {
		return nil, "", &ConflictError{Existing: owner}
	}

	u := &models.User{
		Email:           p.Email,
		Name:            p.DisplayName,
		Photo:           p.Photo,
		EmailVerifiedAt: r.verifiedAt(p),
	}
	u.SetProviderID(p.Provider, p.ExternalID)

	created, err := r.repo.Create(ctx, u)
	if err == nil {
		return created, OutcomeCreated, nil
	}
	if !errors.Is(err, users.ErrDuplicateKey) {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	// A concurrent login won the create race; the unique index is the
	// final arbiter. Re-read to classify the duplicate.
	if linked, lerr := r.repo.FindByProviderID(ctx, p.Provider, p.ExternalID); lerr == nil && linked != nil {
		return linked, OutcomeUpdated, nil
	}
	if owner, lerr := r.repo.FindByEmail(ctx, p.Email); lerr == nil && owner != nil {
		return nil, "", &ConflictError{Existing: owner}
	}
	return nil, "", fmt.Errorf("create user: %w", err)
}

func (r *Reconciler) verifiedAt(p *Profile) *time.Time {
	if !p.EmailVerified {
		return nil
	}
	t := r.now().UTC()
	return &t
}
