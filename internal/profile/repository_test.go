package profile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/merchkit/storefront-core/internal/authz"
	"github.com/merchkit/storefront-core/internal/identity"
	"github.com/merchkit/storefront-core/internal/infrastructure/database"
	_ "github.com/merchkit/storefront-core/migrations"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test database: %v", err)
	}
	return db
}

func createTestUser(t *testing.T, db *database.DB, email string) *identity.User {
	t.Helper()
	user := &identity.User{Email: email, Name: "Test", PasswordHash: "hash"}
	if err := identity.NewUserRepository(db.DB).Create(context.Background(), user); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	return user
}

func TestEnsureForAndFetchMine(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	user := createTestUser(t, db, "s@example.com")

	p, err := repo.EnsureFor(ctx, user.ID, "Shopper", authz.RoleCustomer)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if p.Role != authz.RoleCustomer || p.Name != "Shopper" {
		t.Errorf("profile = %+v", p)
	}

	got, err := repo.FetchMine(ctx, user.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.UserID != user.ID {
		t.Errorf("user id = %q", got.UserID)
	}
}

func TestEnsureForIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	user := createTestUser(t, db, "s@example.com")

	if _, err := repo.EnsureFor(ctx, user.ID, "First", authz.RoleAdmin); err != nil {
		t.Fatalf("first ensure: %v", err)
	}

	// A second call must not downgrade the existing profile.
	p, err := repo.EnsureFor(ctx, user.ID, "Second", authz.RoleCustomer)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if p.Role != authz.RoleAdmin || p.Name != "First" {
		t.Errorf("existing profile was overwritten: %+v", p)
	}
}

func TestFetchMineMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.DB)

	_, err := repo.FetchMine(context.Background(), "usr-missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSetRole(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	user := createTestUser(t, db, "s@example.com")

	if _, err := repo.EnsureFor(ctx, user.ID, "S", authz.RoleCustomer); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := repo.SetRole(ctx, user.ID, authz.RoleSuperAdmin); err != nil {
		t.Fatalf("set role: %v", err)
	}

	p, err := repo.FetchMine(ctx, user.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if p.Role != authz.RoleSuperAdmin {
		t.Errorf("role = %q, want super_admin", p.Role)
	}

	if err := repo.SetRole(ctx, user.ID, authz.Role("wizard")); err == nil {
		t.Error("invalid role accepted")
	}
	if err := repo.SetRole(ctx, "usr-missing", authz.RoleAdmin); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing profile error = %v, want ErrNotFound", err)
	}
}

func TestUpdateDisplayFields(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db.DB)
	ctx := context.Background()
	user := createTestUser(t, db, "s@example.com")

	p, err := repo.EnsureFor(ctx, user.ID, "S", authz.RoleCustomer)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	p.Name = "Updated"
	p.StoreName = "Corner Shop"
	p.Phone = "555-0101"
	p.AgeVerified = true
	if err := repo.Update(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := repo.FetchMine(ctx, user.ID)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Name != "Updated" || got.StoreName != "Corner Shop" || !got.AgeVerified {
		t.Errorf("updated profile = %+v", got)
	}
	if got.Role != authz.RoleCustomer {
		t.Errorf("role changed by display update: %q", got.Role)
	}
	if got.UpdatedAt.Before(got.CreatedAt) {
		t.Errorf("updated_at %v before created_at %v", got.UpdatedAt, got.CreatedAt)
	}
}
