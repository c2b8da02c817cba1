package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/merchkit/storefront-core/internal/infrastructure/config"
	"github.com/merchkit/storefront-core/internal/infrastructure/database"
	"github.com/merchkit/storefront-core/internal/infrastructure/logging"
	_ "github.com/merchkit/storefront-core/migrations"
)

const testJWTSecret = "test-secret-key-at-least-32-chars-long"

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

func testIdentityConfig() config.IdentityConfig {
	return config.IdentityConfig{
		JWTSecret:       testJWTSecret,
		AccessTokenTTL:  15,
		RefreshTokenTTL: 60 * 24,
		CodeTTL:         60,
		CookiePrefix:    "storefront",
	}
}

// captureMailer records links instead of sending them.
type captureMailer struct {
	confirmEmail string
	confirmLink  string
	resetEmail   string
	resetLink    string
}

func (m *captureMailer) SendEmailConfirmation(_ context.Context, email, link string) error {
	m.confirmEmail = email
	m.confirmLink = link
	return nil
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.resetEmail = email
	m.resetLink = link
	return nil
}

func newTestProvider(t *testing.T) (*LocalProvider, *captureMailer) {
	t.Helper()

	db := newTestDB(t)
	mailer := &captureMailer{}
	p := NewLocalProvider(testIdentityConfig(), "http://localhost:8080", db.DB, mailer, logging.Default())
	return p, mailer
}

// signUpConfirmed creates and confirms an account, returning the user.
func signUpConfirmed(t *testing.T, p *LocalProvider, email, password string) *User {
	t.Helper()

	ctx := context.Background()
	if err := p.SignUp(ctx, SignUpParams{Email: email, Password: password, Name: "Test User"}); err != nil {
		t.Fatalf("sign-up: %v", err)
	}

	user, err := p.users.GetByEmail(ctx, email)
	if err != nil {
		t.Fatalf("loading user: %v", err)
	}
	if err := p.users.ConfirmEmail(ctx, user.ID); err != nil {
		t.Fatalf("confirming email: %v", err)
	}
	user.EmailConfirmed = true
	return user
}
