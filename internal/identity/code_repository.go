package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CodeRepository defines the interface for one-time code persistence.
type CodeRepository interface {
	Create(ctx context.Context, code *OneTimeCode) error
	Consume(ctx context.Context, codeHash string) (*OneTimeCode, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// SQLiteCodeRepository implements CodeRepository using SQLite.
type SQLiteCodeRepository struct {
	db *sql.DB
}

// NewCodeRepository creates a new SQLite-backed one-time code repository.
func NewCodeRepository(db *sql.DB) *SQLiteCodeRepository {
	return &SQLiteCodeRepository{db: db}
}

// Create inserts a new one-time code. The ID is generated if empty.
func (r *SQLiteCodeRepository) Create(ctx context.Context, code *OneTimeCode) error {
	if code.ID == "" {
		code.ID = "otc-" + uuid.NewString()[:16]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	code.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_codes (id, user_id, code_hash, purpose, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		code.ID, code.UserID, code.CodeHash, string(code.Purpose),
		code.ExpiresAt.UTC().Format(time.RFC3339), now,
	)
	if err != nil {
		return fmt.Errorf("creating one-time code: %w", err)
	}

	return nil
}

// Consume validates and burns a one-time code in a single transaction.
// A code can be consumed exactly once and only before its expiry.
func (r *SQLiteCodeRepository) Consume(ctx context.Context, codeHash string) (*OneTimeCode, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning consume transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is no-op after commit

	var c OneTimeCode
	var purpose string
	var expiresAt, createdAt string
	var consumedAt sql.NullString

	err = tx.QueryRowContext(ctx,
		`SELECT id, user_id, code_hash, purpose, expires_at, consumed_at, created_at
		 FROM one_time_codes WHERE code_hash = ?`, codeHash,
	).Scan(&c.ID, &c.UserID, &c.CodeHash, &purpose, &expiresAt, &consumedAt, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCodeInvalid
		}
		return nil, fmt.Errorf("getting one-time code: %w", err)
	}

	c.Purpose = CodePurpose(purpose)
	c.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt) //nolint:errcheck // format is controlled
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled

	if consumedAt.Valid {
		return nil, ErrCodeConsumed
	}
	if time.Now().After(c.ExpiresAt) {
		return nil, ErrCodeExpired
	}

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		"UPDATE one_time_codes SET consumed_at = ? WHERE id = ?",
		now.Format(time.RFC3339), c.ID,
	); err != nil {
		return nil, fmt.Errorf("consuming one-time code: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing consume: %w", err)
	}

	c.ConsumedAt = &now
	return &c, nil
}

// DeleteExpired removes codes past their expiry. Returns the number of rows
// deleted.
func (r *SQLiteCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM one_time_codes WHERE expires_at < ?",
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("deleting expired codes: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows, nil
}
