package identity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUserRepositoryCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.DB)
	ctx := context.Background()

	user := &User{Email: "shopper@example.com", Name: "Shopper", PasswordHash: "hash"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}
	if user.ID == "" {
		t.Fatal("no ID assigned on create")
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.Email != user.Email || got.Name != user.Name {
		t.Errorf("got %+v, want email/name from %+v", got, user)
	}
	if got.EmailConfirmed {
		t.Error("new user already confirmed")
	}
}

func TestUserRepositoryEmailCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.DB)
	ctx := context.Background()

	if err := repo.Create(ctx, &User{Email: "Shopper@Example.com", Name: "S", PasswordHash: "h"}); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	if _, err := repo.GetByEmail(ctx, "shopper@example.com"); err != nil {
		t.Errorf("lower-case lookup failed: %v", err)
	}

	err := repo.Create(ctx, &User{Email: "SHOPPER@EXAMPLE.COM", Name: "S2", PasswordHash: "h"})
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate email error = %v, want ErrEmailExists", err)
	}
}

func TestUserRepositoryConfirmAndUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db.DB)
	ctx := context.Background()

	user := &User{Email: "s@example.com", Name: "S", PasswordHash: "old"}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	if err := repo.ConfirmEmail(ctx, user.ID); err != nil {
		t.Fatalf("confirming: %v", err)
	}
	if err := repo.UpdatePassword(ctx, user.ID, "new"); err != nil {
		t.Fatalf("updating password: %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.EmailConfirmed {
		t.Error("email not confirmed")
	}
	if got.PasswordHash != "new" {
		t.Errorf("password hash = %q, want %q", got.PasswordHash, "new")
	}

	if err := repo.UpdatePassword(ctx, "usr-missing", "x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("missing user update error = %v, want ErrUserNotFound", err)
	}
}

func TestTokenRepositoryRotation(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB)
	tokens := NewTokenRepository(db.DB)
	ctx := context.Background()

	user := &User{Email: "s@example.com", Name: "S", PasswordHash: "h"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	old := &RefreshToken{
		UserID:    user.ID,
		TokenHash: HashToken("raw-one"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := tokens.Create(ctx, old); err != nil {
		t.Fatalf("creating token: %v", err)
	}
	if old.FamilyID == "" {
		t.Fatal("no family assigned on create")
	}

	next := &RefreshToken{
		UserID:    user.ID,
		FamilyID:  old.FamilyID,
		TokenHash: HashToken("raw-two"),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := tokens.RotateRefreshToken(ctx, old.ID, next); err != nil {
		t.Fatalf("rotating: %v", err)
	}

	rotatedOut, err := tokens.GetByTokenHash(ctx, HashToken("raw-one"))
	if err != nil {
		t.Fatalf("get old: %v", err)
	}
	if !rotatedOut.Revoked {
		t.Error("rotated-out token still live")
	}

	live, err := tokens.GetByTokenHash(ctx, HashToken("raw-two"))
	if err != nil {
		t.Fatalf("get new: %v", err)
	}
	if live.Revoked {
		t.Error("rotated-in token revoked")
	}
	if live.FamilyID != old.FamilyID {
		t.Errorf("family changed on rotation: %q vs %q", live.FamilyID, old.FamilyID)
	}
}

func TestTokenRepositoryRevokeFamilyAndExcept(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB)
	tokens := NewTokenRepository(db.DB)
	ctx := context.Background()

	user := &User{Email: "s@example.com", Name: "S", PasswordHash: "h"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	mk := func(raw string) *RefreshToken {
		tok := &RefreshToken{UserID: user.ID, TokenHash: HashToken(raw), ExpiresAt: time.Now().Add(time.Hour)}
		if err := tokens.Create(ctx, tok); err != nil {
			t.Fatalf("creating token %s: %v", raw, err)
		}
		return tok
	}
	a, b, _ := mk("a"), mk("b"), mk("c")

	if err := tokens.RevokeFamily(ctx, a.FamilyID); err != nil {
		t.Fatalf("revoke family: %v", err)
	}
	if got, _ := tokens.GetByTokenHash(ctx, HashToken("a")); !got.Revoked {
		t.Error("family member not revoked")
	}

	if err := tokens.RevokeAllForUserExcept(ctx, user.ID, b.FamilyID); err != nil {
		t.Fatalf("revoke all except: %v", err)
	}
	if got, _ := tokens.GetByTokenHash(ctx, HashToken("b")); got.Revoked {
		t.Error("kept family was revoked")
	}
	if got, _ := tokens.GetByTokenHash(ctx, HashToken("c")); !got.Revoked {
		t.Error("other family survived revoke-all-except")
	}

	if _, err := tokens.GetByTokenHash(ctx, HashToken("nope")); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("unknown hash error = %v, want ErrTokenInvalid", err)
	}
}

func TestCodeRepositoryConsumeOnce(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB)
	codes := NewCodeRepository(db.DB)
	ctx := context.Background()

	user := &User{Email: "s@example.com", Name: "S", PasswordHash: "h"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	code := &OneTimeCode{
		UserID:    user.ID,
		CodeHash:  HashToken("raw-code"),
		Purpose:   PurposeSignup,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := codes.Create(ctx, code); err != nil {
		t.Fatalf("creating code: %v", err)
	}

	got, err := codes.Consume(ctx, HashToken("raw-code"))
	if err != nil {
		t.Fatalf("consuming: %v", err)
	}
	if got.Purpose != PurposeSignup || got.UserID != user.ID {
		t.Errorf("consumed code = %+v", got)
	}

	if _, err := codes.Consume(ctx, HashToken("raw-code")); !errors.Is(err, ErrCodeConsumed) {
		t.Errorf("second consume error = %v, want ErrCodeConsumed", err)
	}
	if _, err := codes.Consume(ctx, HashToken("never-issued")); !errors.Is(err, ErrCodeInvalid) {
		t.Errorf("unknown code error = %v, want ErrCodeInvalid", err)
	}
}

func TestCodeRepositoryExpired(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepository(db.DB)
	codes := NewCodeRepository(db.DB)
	ctx := context.Background()

	user := &User{Email: "s@example.com", Name: "S", PasswordHash: "h"}
	if err := users.Create(ctx, user); err != nil {
		t.Fatalf("creating user: %v", err)
	}

	code := &OneTimeCode{
		UserID:    user.ID,
		CodeHash:  HashToken("stale"),
		Purpose:   PurposeRecovery,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := codes.Create(ctx, code); err != nil {
		t.Fatalf("creating code: %v", err)
	}

	if _, err := codes.Consume(ctx, HashToken("stale")); !errors.Is(err, ErrCodeExpired) {
		t.Errorf("expired consume error = %v, want ErrCodeExpired", err)
	}

	deleted, err := codes.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}
