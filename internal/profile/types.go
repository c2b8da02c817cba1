package profile

import (
	"errors"
	"time"

	"github.com/merchkit/storefront-core/internal/authz"
)

// Profile is the application-level record attached to an account: display
// data plus the role the permission model keys on. Identity proves who the
// caller is; the profile says what they are allowed to be.
type Profile struct {
	UserID      string     `json:"id"`
	Name        string     `json:"name"`
	ImageURL    string     `json:"image_url,omitempty"`
	Role        authz.Role `json:"role"`
	StoreName   string     `json:"store_name,omitempty"`
	Address     string     `json:"address,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	EIN         string     `json:"ein,omitempty"`
	AgeVerified bool       `json:"age_verified"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ErrNotFound is returned when no profile exists for a user.
var ErrNotFound = errors.New("profile not found")
