// Package account defines the authenticator's account records and
// the rules that admit them.
package account

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
)

const PINLength int = 4

var (
	ErrValidation   = errors.New("account: validation failure")
	ErrNotFound     = errors.New("account: not found")
	ErrStaleCounter = errors.New("account: stale counter")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field string, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Account is a named credential source.
type Account struct {
	ID          string            `json:"id"`
	Name        string            `json:"name" validate:"required"`
	Email       string            `json:"email"`
	Issuer      string            `json:"issuer,omitempty"`
	Secret      string            `json:"secret" validate:"required"`
	Type        otp.Type          `json:"type" validate:"required"`
	Category    category.Category `json:"category"`
	Algorithm   otp.Algorithm     `json:"algorithm,omitempty" validate:"omitempty,oneof=SHA1 SHA256 SHA512"`
	Digits      int               `json:"digits" validate:"min=4,max=8"`
	Period      int64             `json:"period,omitempty"`
	Counter     uint64            `json:"counter,omitempty"`
	PIN         string            `json:"pin,omitempty"`
	IsTemporary bool              `json:"isTemporary,omitempty"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their json names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks the account against the invariants of its variant.
func (a Account) Validate() error {
	if err := validate.Struct(a); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
			return fmt.Errorf("%w: %v", ErrValidation, err)
		}

		var first validator.FieldError = fieldErrs[0]

		switch first.Tag() {
		case "required":
			return invalid(first.Field(), "is required")
		case "min", "max":
			return invalid(first.Field(), "must be between %d and %d", otp.MinDigits, otp.MaxDigits)
		case "oneof":
			return invalid(first.Field(), "must be one of %s", first.Param())
		default:
			return invalid(first.Field(), "failed on %s", first.Tag())
		}
	}

	if !a.Type.Valid() {
		return invalid("type", "unsupported type %q", a.Type)
	}

	if a.Category != "" && (!a.Category.Valid() || a.Category == category.All) {
		return invalid("category", "unsupported category %q", a.Category)
	}

	if err := validateSecret(a.Type, a.Secret); err != nil {
		return err
	}

	switch a.Type {
	case otp.TypeTOTP:
		if a.Period < otp.MinPeriod || a.Period > otp.MaxPeriod {
			return invalid("period", "must be between %d and %d seconds", otp.MinPeriod, otp.MaxPeriod)
		}
	case otp.TypeMOTP:
		if utf8.RuneCountInString(a.PIN) != PINLength {
			return invalid("pin", "must be exactly %d characters", PINLength)
		}
	}

	return nil
}

func validateSecret(t otp.Type, secret string) error {
	var ok bool

	switch t {
	case otp.TypeMOTP:
		ok = otp.ValidateMOTPSecret(secret)
	case otp.TypeEmailOTP:
		ok = strings.TrimSpace(secret) != ""
	default:
		ok = otp.ValidateSecret(secret)
	}

	if !ok {
		return fmt.Errorf("%w: %w", invalid("secret", "invalid secret key format"), otp.ErrInvalidSecret)
	}

	return nil
}

// Params returns the generation inputs held by the account.
func (a Account) Params() otp.Params {
	var p otp.Params = otp.Params{
		Algorithm: a.Algorithm,
		Digits:    a.Digits,
		Period:    a.Period,
		Counter:   a.Counter,
		PIN:       a.PIN,
	}

	if a.ExpiresAt != nil {
		p.ExpiresAt = *a.ExpiresAt
	}

	return p
}

// Code generates the account's code at now. For HOTP the counter is
// not advanced; see Store.AdvanceCounter.
func (a Account) Code(now time.Time) (otp.GeneratedCode, error) {
	return otp.Generate(a.Type, a.Secret, a.Params(), now)
}

// normalize fills variant defaults and clears fields the variant does not use.
func (a *Account) normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Email = strings.TrimSpace(a.Email)
	a.Secret = strings.TrimSpace(a.Secret)

	if a.Category == "" {
		a.Category = category.Other
	}

	if a.Algorithm == "" {
		a.Algorithm = otp.SHA1
	}

	switch a.Type {
	case otp.TypeTOTP:
		a.Counter, a.PIN = 0, ""
	case otp.TypeHOTP:
		a.Period, a.PIN = 0, ""
	case otp.TypeMOTP:
		a.Period, a.Counter = otp.DefaultPeriod, 0
		a.Digits = 6
	case otp.TypeSteam:
		a.Period, a.Counter, a.PIN = otp.DefaultPeriod, 0, ""
		a.Digits = 5
	case otp.TypeEmailOTP:
		a.Period, a.Counter, a.PIN = 0, 0, ""
	}
}
