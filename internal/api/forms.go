package api

import (
	"regexp"
	"strings"
)

// minPasswordLength matches the storefront account forms.
const minPasswordLength = 8

// emailPattern is a pragmatic format check, not RFC 5322. The provider is
// the final authority on whether an address exists.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// signInForm is the sign-in request body.
type signInForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (f *signInForm) validate() map[string]string {
	errs := make(map[string]string)
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = "Invalid email address"
	}
	if f.Password == "" {
		errs["password"] = "Password is required"
	}
	return errs
}

// signUpForm is the sign-up request body.
type signUpForm struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Privacy         bool   `json:"privacy"`
}

func (f *signUpForm) validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(f.Name) == "" {
		errs["name"] = "Name is required"
	}
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = "Invalid email address"
	}
	if len(f.Password) < minPasswordLength {
		errs["password"] = "Password must be at least 8 characters"
	}
	if f.ConfirmPassword != f.Password {
		errs["confirmPassword"] = "Passwords do not match"
	}
	if !f.Privacy {
		errs["privacy"] = "You must accept the privacy policy"
	}
	return errs
}

// forgotPasswordForm is the password-reset request body.
type forgotPasswordForm struct {
	Email string `json:"email"`
}

func (f *forgotPasswordForm) validate() map[string]string {
	errs := make(map[string]string)
	if !emailPattern.MatchString(f.Email) {
		errs["email"] = "Invalid email address"
	}
	return errs
}

// updatePasswordForm is the password-update request body. The code arrives
// from the emailed recovery link the update page carries along.
type updatePasswordForm struct {
	Code            string `json:"code"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (f *updatePasswordForm) validate() map[string]string {
	errs := make(map[string]string)
	if f.Code == "" {
		errs["password"] = "Recovery link is missing or invalid"
	}
	if len(f.Password) < minPasswordLength {
		errs["password"] = "Password must be at least 8 characters"
	}
	if f.ConfirmPassword != f.Password {
		errs["confirmPassword"] = "Passwords do not match"
	}
	return errs
}
