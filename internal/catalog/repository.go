package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	defaultLimit = 24
	maxLimit     = 100
)

// sortClauses is the allowlist of ORDER BY fragments. Sort keys arrive from
// query strings and must never reach SQL as raw text.
var sortClauses = map[string]string{
	"newest":     "p.created_at DESC",
	"price_asc":  "p.price_cents ASC",
	"price_desc": "p.price_cents DESC",
	"name":       "p.name COLLATE NOCASE ASC",
}

// Repository defines the interface for catalog reads and writes.
type Repository interface {
	ListProducts(ctx context.Context, opts ListOptions) ([]*Product, error)
	GetProductBySlug(ctx context.Context, slug string) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error
	SetProductPublished(ctx context.Context, id string, published bool) error
	ListCategories(ctx context.Context) ([]*Category, error)
	CreateCategory(ctx context.Context, c *Category) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite-backed catalog repository.
func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const productColumns = `p.id, p.slug, COALESCE(p.category_id, ''), p.name, COALESCE(p.description, ''),
	p.price_cents, COALESCE(p.image_url, ''), p.published, p.created_at, p.updated_at`

// ListProducts returns published products matching the options.
func (r *SQLiteRepository) ListProducts(ctx context.Context, opts ListOptions) ([]*Product, error) {
	query := "SELECT " + productColumns + " FROM products p"
	var args []any
	where := " WHERE p.published = 1"

	if opts.CategorySlug != "" {
		query += " JOIN categories c ON c.id = p.category_id"
		where += " AND c.slug = ?"
		args = append(args, opts.CategorySlug)
	}
	if opts.Search != "" {
		where += " AND (p.name LIKE ? OR p.description LIKE ?)"
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}

	order, ok := sortClauses[opts.Sort]
	if !ok {
		order = sortClauses["newest"]
	}

	limit := opts.Limit
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	offset := max(opts.Offset, 0)

	query += where + " ORDER BY " + order + " LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var products []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating products: %w", err)
	}

	return products, nil
}

// GetProductBySlug returns a published product by its URL slug.
func (r *SQLiteRepository) GetProductBySlug(ctx context.Context, slug string) (*Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products p WHERE p.slug = ? AND p.published = 1", slug)
	if err != nil {
		return nil, fmt.Errorf("getting product: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting product: %w", err)
		}
		return nil, ErrNotFound
	}
	return scanProduct(rows)
}

// CreateProduct inserts a new product. The ID is generated if empty.
func (r *SQLiteRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = "prd-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	var categoryID any
	if p.CategoryID != "" {
		categoryID = p.CategoryID
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (id, slug, category_id, name, description, price_cents, image_url, published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Slug, categoryID, p.Name, p.Description, p.PriceCents,
		p.ImageURL, boolToInt(p.Published), now, now,
	)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

// SetProductPublished toggles a product's visibility.
func (r *SQLiteRepository) SetProductPublished(ctx context.Context, id string, published bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"UPDATE products SET published = ?, updated_at = ? WHERE id = ?",
		boolToInt(published), now, id,
	)
	if err != nil {
		return fmt.Errorf("setting published: %w", err)
	}

	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns all published categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]*Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name, COALESCE(image_url, ''), published, created_at
		 FROM categories WHERE published = 1 ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close() //nolint:errcheck // read-only rows

	var categories []*Category
	for rows.Next() {
		var c Category
		var published int
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.ImageURL, &published, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		c.Published = published != 0
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
		categories = append(categories, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating categories: %w", err)
	}

	return categories, nil
}

// CreateCategory inserts a new category. The ID is generated if empty.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c *Category) error {
	if c.ID == "" {
		c.ID = "cat-" + uuid.NewString()[:8]
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, slug, name, image_url, published, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Slug, c.Name, c.ImageURL, boolToInt(c.Published), now,
	)
	if err != nil {
		return fmt.Errorf("creating category: %w", err)
	}
	return nil
}

func scanProduct(rows *sql.Rows) (*Product, error) {
	var p Product
	var published int
	var createdAt, updatedAt string

	err := rows.Scan(
		&p.ID, &p.Slug, &p.CategoryID, &p.Name, &p.Description,
		&p.PriceCents, &p.ImageURL, &published, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning product: %w", err)
	}

	p.Published = published != 0
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
