package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/merchkit/storefront-core/internal/authz"
)

// Repository defines the interface for profile persistence.
type Repository interface {
	FetchMine(ctx context.Context, userID string) (*Profile, error)
	EnsureFor(ctx context.Context, userID, name string, role authz.Role) (*Profile, error)
	SetRole(ctx context.Context, userID string, role authz.Role) error
	Update(ctx context.Context, p *Profile) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed profile repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Text columns other than role are nullable; coalesce so scans stay simple.
const profileColumns = `user_id, COALESCE(name, ''), COALESCE(image_url, ''), role,
	COALESCE(store_name, ''), COALESCE(address, ''), COALESCE(phone, ''), COALESCE(ein, ''),
	age_verified, created_at, updated_at`

// FetchMine loads the profile for a user.
func (r *SQLiteRepository) FetchMine(ctx context.Context, userID string) (*Profile, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE user_id = ?", userID)
	return scanProfile(row)
}

// EnsureFor creates a profile for a user if none exists and returns it.
// An existing profile is returned untouched, whatever role it carries.
func (r *SQLiteRepository) EnsureFor(ctx context.Context, userID, name string, role authz.Role) (*Profile, error) {
	existing, err := r.FetchMine(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO profiles (user_id, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO NOTHING`,
		userID, name, string(role), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}

	return r.FetchMine(ctx, userID)
}

// SetRole changes a user's role.
func (r *SQLiteRepository) SetRole(ctx context.Context, userID string, role authz.Role) error {
	if !authz.IsValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"UPDATE profiles SET role = ?, updated_at = ? WHERE user_id = ?",
		string(role), now, userID,
	)
	if err != nil {
		return fmt.Errorf("setting role: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Update writes the mutable display fields of a profile. Role is not
// touched here; use SetRole.
func (r *SQLiteRepository) Update(ctx context.Context, p *Profile) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles
		 SET name = ?, image_url = ?, store_name = ?, address = ?, phone = ?, ein = ?, age_verified = ?, updated_at = ?
		 WHERE user_id = ?`,
		p.Name, p.ImageURL, p.StoreName, p.Address, p.Phone, p.EIN,
		boolToInt(p.AgeVerified), now, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProfile(row *sql.Row) (*Profile, error) {
	var p Profile
	var role string
	var ageVerified int
	var createdAt, updatedAt string

	err := row.Scan(
		&p.UserID, &p.Name, &p.ImageURL, &role, &p.StoreName,
		&p.Address, &p.Phone, &p.EIN, &ageVerified, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning profile: %w", err)
	}

	p.Role = authz.Role(role)
	p.AgeVerified = ageVerified != 0
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
