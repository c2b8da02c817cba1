package identity

import (
	"errors"
	"time"
)

// Session is opaque proof of authentication: token material plus an expiry
// horizon. The application holds and forwards it but never inspects the
// token internals outside this package.
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`

	// familyID ties the session to its refresh-token family. Only this
	// package reads it (password updates spare the active family).
	familyID string
}

// Identity is the resolved subject of a valid Session.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// User is a stored account inside the local identity provider.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	PasswordHash   string    `json:"-"` // never serialised
	EmailConfirmed bool      `json:"email_confirmed"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RefreshToken is a stored refresh token for session continuation.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	FamilyID  string    `json:"family_id"`
	TokenHash string    `json:"-"` // never serialised
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

// CodePurpose classifies a one-time code.
type CodePurpose string

const (
	// PurposeSignup confirms a new account's email address.
	PurposeSignup CodePurpose = "signup"

	// PurposeRecovery authorises a password reset.
	PurposeRecovery CodePurpose = "recovery"
)

// OneTimeCode is an emailed, single-use credential exchangeable for a Session.
type OneTimeCode struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	CodeHash   string      `json:"-"` // never serialised
	Purpose    CodePurpose `json:"purpose"`
	ExpiresAt  time.Time   `json:"expires_at"`
	ConsumedAt *time.Time  `json:"consumed_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// EventType tags a session-change notification.
type EventType string

const (
	// EventSignedIn fires when a new session is established.
	EventSignedIn EventType = "signed_in"

	// EventTokenRefreshed fires when an existing session's tokens rotate.
	EventTokenRefreshed EventType = "token_refreshed"

	// EventSignedOut fires when a session is terminated.
	EventSignedOut EventType = "signed_out"
)

// Event is a session-change notification pushed to subscribers.
type Event struct {
	Type     EventType `json:"type"`
	Identity *Identity `json:"identity,omitempty"`
}

// Error is a structured, expected provider failure (bad credential, expired
// code). These are values, never panics; unexpected transport failures are
// plain wrapped errors instead.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// Expected-failure codes.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeEmailNotConfirmed  = "email_not_confirmed"
	CodeUserExists         = "user_exists"
	CodeUserNotFound       = "user_not_found"
	CodeInvalidCode        = "invalid_code"
)

// credentialError builds the provider failures surfaced to callers. The
// message text is part of the observed contract and is forwarded verbatim
// to form errors.
func credentialError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinel errors for internal provider operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already registered")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenRevoked = errors.New("token has been revoked")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenReuse   = errors.New("refresh token reuse detected")
	ErrCodeInvalid  = errors.New("invalid one-time code")
	ErrCodeExpired  = errors.New("one-time code has expired")
	ErrCodeConsumed = errors.New("one-time code already used")
)
