// ABOUTME: Input checks shared by the sign-up, sign-in, and profile forms
// ABOUTME: Tagged inputs run through validator; failures map to user-facing errors

package validate

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MinPasswordLen is the shortest accepted password
const MinPasswordLen = 6

var (
	ErrNameRequired      = errors.New("Enter your name.")
	ErrEmailRequired     = errors.New("Enter your email.")
	ErrEmailInvalid      = errors.New("Invalid email.")
	ErrPasswordRequired  = errors.New("Enter your password.")
	ErrPasswordTooShort  = errors.New("Password must be at least 6 characters.")
	ErrPasswordMismatch  = errors.New("Password confirmation does not match.")
	ErrOldPasswordNeeded = errors.New("Enter your current password to set a new one.")
)

// SignInInput is what the sign-in form collects
type SignInInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// SignUpInput is what the sign-up form collects
type SignUpInput struct {
	Name     string `validate:"required"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// PasswordChangeInput is a requested password change
type PasswordChangeInput struct {
	Password    string `validate:"required,min=6"`
	Confirm     string `validate:"eqfield=Password"`
	OldPassword string `validate:"required"`
}

type rule struct {
	field string
	tag   string
}

var messages = map[rule]error{
	{"Name", "required"}:        ErrNameRequired,
	{"Email", "required"}:       ErrEmailRequired,
	{"Email", "email"}:          ErrEmailInvalid,
	{"Password", "required"}:    ErrPasswordRequired,
	{"Password", "min"}:         ErrPasswordTooShort,
	{"Confirm", "eqfield"}:      ErrPasswordMismatch,
	{"OldPassword", "required"}: ErrOldPasswordNeeded,
}

var v = validator.New(validator.WithRequiredStructEnabled())

// translate maps validator failures for field (or the struct's own field
// names when field is empty) to user-facing errors.
func translate(err error, field string) []error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		if err != nil {
			return []error{err}
		}
		return nil
	}

	out := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := field
		if name == "" {
			name = fe.Field()
		}
		msg, ok := messages[rule{name, fe.Tag()}]
		if !ok {
			msg = fe
		}
		out = append(out, msg)
	}
	return out
}

func first(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return errs[0]
}

// one checks a single value against tag, reported as field
func one(field, value, tag string) error {
	return first(translate(v.Var(value, tag), field))
}

// Name requires a non-blank name
func Name(s string) error {
	return one("Name", strings.TrimSpace(s), "required")
}

// Email requires a single well-formed address without a display name
func Email(s string) error {
	return one("Email", strings.TrimSpace(s), "required,email")
}

// Password requires a non-empty password for sign-in
func Password(s string) error {
	return one("Password", s, "required")
}

// NewPassword requires a password long enough to be set
func NewPassword(s string) error {
	return one("Password", s, "required,min=6")
}

// Confirmation returns a check that the confirmation matches *password.
// password is read at validation time so it can point at a live form field.
func Confirmation(password *string) func(string) error {
	return func(s string) error {
		return first(translate(v.VarWithValue(s, *password, "eqfield"), "Confirm"))
	}
}

// SignIn checks sign-in input and reports every failing field
func SignIn(in SignInInput) error {
	in.Email = strings.TrimSpace(in.Email)
	return errors.Join(translate(v.Struct(in), "")...)
}

// SignUp checks sign-up input and reports every failing field
func SignUp(in SignUpInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return errors.Join(translate(v.Struct(in), "")...)
}

// PasswordChange checks an optional password change. An empty next means no
// change. The first failing rule is returned.
func PasswordChange(old, next, confirm string) error {
	if next == "" && confirm == "" {
		return nil
	}
	in := PasswordChangeInput{Password: next, Confirm: confirm, OldPassword: old}
	return first(translate(v.Struct(in), ""))
}
