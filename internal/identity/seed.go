package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// SeedResult reports a first-boot owner account.
type SeedResult struct {
	User     *User
	Password string // generated, shown once at startup
}

// SeedOwner creates the initial owner account when the user table is empty.
// Returns nil when accounts already exist. The generated password is printed
// by the caller exactly once; it is never stored in clear.
func (p *LocalProvider) SeedOwner(ctx context.Context, email string) (*SeedResult, error) {
	count, err := p.users.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting users: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	password, err := generatePassword()
	if err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hashing seed password: %w", err)
	}

	user := &User{
		Email:          email,
		Name:           "Owner",
		PasswordHash:   hash,
		EmailConfirmed: true,
	}
	if err := p.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating owner: %w", err)
	}

	p.logger.Info("seeded owner account", "user_id", user.ID, "email", email)
	return &SeedResult{User: user, Password: password}, nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
