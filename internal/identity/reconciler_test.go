package identity

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ssogate/ssogate/internal/models"
	"github.com/ssogate/ssogate/internal/users"
)

// failingRepo wraps a Repository and fails selected operations.
type failingRepo struct {
	users.Repository
	failFind   bool
	failEmail  bool
	failCreate bool
	failUpdate bool
}

var errBoom = errors.New("store unavailable")

func (f *failingRepo) FindByProviderID(ctx context.Context, provider, externalID string) (*models.User, error) {
	if f.failFind {
		return nil, errBoom
	}
	return f.Repository.FindByProviderID(ctx, provider, externalID)
}

func (f *failingRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.failEmail {
		return nil, errBoom
	}
	return f.Repository.FindByEmail(ctx, email)
}

func (f *failingRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.failCreate {
		return nil, errBoom
	}
	return f.Repository.Create(ctx, u)
}

func (f *failingRepo) Update(ctx context.Context, u *models.User) (*models.User, error) {
	if f.failUpdate {
		return nil, errBoom
	}
	return f.Repository.Update(ctx, u)
}

func googleProfile(id, name, email string, verified bool) *Profile {
	return &Profile{
		Provider:      models.ProviderGoogle,
		ExternalID:    id,
		DisplayName:   name,
		Email:         email,
		EmailVerified: verified,
	}
}

func TestReconcile_CreatesNewUser(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)
	ctx := context.Background()

	u, outcome, err := rec.Reconcile(ctx, googleProfile("g-1", "Alice", "alice@example.com", true))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeCreated)
	}
	if u.GoogleID != "g-1" || u.Email != "alice@example.com" || u.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if u.EmailVerifiedAt == nil {
		t.Fatal("expected emailVerifiedAt to be set for a verified profile")
	}
	if u.ID == "" {
		t.Fatal("expected store-assigned id")
	}
}

func TestReconcile_UnverifiedEmailLeavesTimestampUnset(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)

	u, _, err := rec.Reconcile(context.Background(), googleProfile("g-1", "Alice", "alice@example.com", false))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if u.EmailVerifiedAt != nil {
		t.Fatal("expected emailVerifiedAt unset for unverified profile")
	}
}

func TestReconcile_UpdatesLinkedUser(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)
	ctx := context.Background()

	first, _, err := rec.Reconcile(ctx, googleProfile("g-1", "Alice", "alice@example.com", true))
	if err != nil {
		t.Fatalf("first Reconcile failed: %v", err)
	}

	// same external id, new display name, email deliberately different:
	// the linked identity is authoritative, email is not re-checked
	second, outcome, err := rec.Reconcile(ctx, googleProfile("g-1", "Alice Smith", "other@example.com", true))
	if err != nil {
		t.Fatalf("second Reconcile failed: %v", err)
	}
	if outcome != OutcomeUpdated {
		t.Fatalf("outcome = %q, want %q", outcome, OutcomeUpdated)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user id, got %s and %s", first.ID, second.ID)
	}
	if second.Name != "Alice Smith" {
		t.Fatalf("name not updated: %q", second.Name)
	}
	if second.GoogleID != "g-1" {
		t.Fatalf("provider link must not change: %q", second.GoogleID)
	}
	if second.Email != "alice@example.com" {
		t.Fatalf("email must not be re-written on update: %q", second.Email)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)
	ctx := context.Background()
	p := googleProfile("g-7", "Carol", "carol@example.com", true)

	a, _, err := rec.Reconcile(ctx, p)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	b, outcome, err := rec.Reconcile(ctx, p)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeUpdated || b.ID != a.ID {
		t.Fatalf("expected same user both times, got %s/%s outcome %q", a.ID, b.ID, outcome)
	}
}

func TestReconcile_EmailConflict(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)
	ctx := context.Background()

	existing, _, err := rec.Reconcile(ctx, googleProfile("g-1", "Alice", "shared@example.com", true))
	if err != nil {
		t.Fatalf("setup Reconcile failed: %v", err)
	}

	// a different provider identity with the same email
	_, _, err = rec.Reconcile(ctx, &Profile{
		Provider:    models.ProviderGithub,
		ExternalID:  "gh-2",
		DisplayName: "Alice GH",
		Email:       "shared@example.com",
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Existing == nil || conflict.Existing.ID != existing.ID {
		t.Fatalf("conflict should reference the owning user: %+v", conflict.Existing)
	}

	// no mutation happened: the github id is still unlinked
	u, err := repo.FindByProviderID(ctx, models.ProviderGithub, "gh-2")
	if err != nil || u != nil {
		t.Fatalf("expected no user created on conflict, got (%v, %v)", u, err)
	}
}

func TestReconcile_MissingEmail(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)

	_, _, err := rec.Reconcile(context.Background(), &Profile{
		Provider:    models.ProviderGithub,
		ExternalID:  "gh-3",
		DisplayName: "No Mail",
	})
	if !errors.Is(err, ErrMissingEmail) {
		t.Fatalf("expected ErrMissingEmail, got %v", err)
	}
}

func TestReconcile_MissingEmailOKWhenAlreadyLinked(t *testing.T) {
	// a returning linked user is updated even when the provider stopped
	// sending an email: step 3 is never reached
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)
	ctx := context.Background()

	if _, _, err := rec.Reconcile(ctx, googleProfile("g-9", "Dan", "dan@example.com", true)); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	u, outcome, err := rec.Reconcile(ctx, googleProfile("g-9", "Daniel", "", false))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if outcome != OutcomeUpdated || u.Name != "Daniel" {
		t.Fatalf("unexpected result: outcome=%q user=%+v", outcome, u)
	}
	if u.EmailVerifiedAt != nil {
		t.Fatal("expected emailVerifiedAt cleared for unverified login")
	}
}

func TestReconcile_StoreFailures(t *testing.T) {
	ctx := context.Background()
	p := googleProfile("g-1", "Alice", "alice@example.com", true)

	cases := []struct {
		name string
		repo *failingRepo
	}{
		{"provider lookup", &failingRepo{Repository: users.NewMemoryRepository(), failFind: true}},
		{"email lookup", &failingRepo{Repository: users.NewMemoryRepository(), failEmail: true}},
		{"create", &failingRepo{Repository: users.NewMemoryRepository(), failCreate: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := NewReconciler(tc.repo)
			_, _, err := rec.Reconcile(ctx, p)
			if !errors.Is(err, errBoom) {
				t.Fatalf("expected wrapped store error, got %v", err)
			}
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				t.Fatal("store failure must not be reported as conflict")
			}
		})
	}
}

func TestReconcile_UpdateFailurePropagates(t *testing.T) {
	base := users.NewMemoryRepository()
	rec := NewReconciler(base)
	ctx := context.Background()
	if _, _, err := rec.Reconcile(ctx, googleProfile("g-1", "Alice", "alice@example.com", true)); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	rec = NewReconciler(&failingRepo{Repository: base, failUpdate: true})
	_, _, err := rec.Reconcile(ctx, googleProfile("g-1", "Alice2", "alice@example.com", true))
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

// duplicateOnCreateRepo simulates losing the create race: Create always
// reports a duplicate, and the re-read then finds the racing winner.
type duplicateOnCreateRepo struct {
	users.Repository
	winner       *models.User
	createTried  bool
}

func (d *duplicateOnCreateRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	d.createTried = true
	return nil, fmt.Errorf("%w: simulated race", users.ErrDuplicateKey)
}

func (d *duplicateOnCreateRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	// the winner only becomes visible after our create attempt, like a
	// concurrent insert committing between our lookup and our insert
	if d.createTried && d.winner != nil && d.winner.Email == email {
		return d.winner, nil
	}
	return nil, nil
}

func TestReconcile_CreateRaceMapsToConflict(t *testing.T) {
	winner := &models.User{ID: "w-1", GithubID: "gh-other", Email: "race@example.com", Name: "Winner"}
	repo := &duplicateOnCreateRepo{Repository: users.NewMemoryRepository(), winner: winner}
	rec := NewReconciler(repo)

	_, _, err := rec.Reconcile(context.Background(), googleProfile("g-race", "Loser", "race@example.com", true))
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError after losing create race, got %v", err)
	}
	if conflict.Existing.ID != "w-1" {
		t.Fatalf("conflict should reference race winner, got %+v", conflict.Existing)
	}
}

func TestReconcile_VerifiedAtUsesClock(t *testing.T) {
	repo := users.NewMemoryRepository()
	rec := NewReconciler(repo)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	u, _, err := rec.Reconcile(context.Background(), googleProfile("g-t", "Tim", "tim@example.com", true))
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if u.EmailVerifiedAt == nil || !u.EmailVerifiedAt.Equal(fixed) {
		t.Fatalf("emailVerifiedAt = %v, want %v", u.EmailVerifiedAt, fixed)
	}
}
