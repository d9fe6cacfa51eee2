package account

import (
	"strconv"
	"strings"

	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
	"github.com/tim-projects/otpkit/otpauth"
)

// Form holds the text fields of manual account entry.
type Form struct {
	Name      string
	Email     string
	Issuer    string
	Secret    string
	Type      otp.Type
	Category  category.Category
	Algorithm otp.Algorithm
	Digits    string
	Period    string
	Counter   string
	PIN       string
}

// NewForm returns an empty form with the entry defaults.
func NewForm(defaultCategory category.Category) Form {
	if defaultCategory == "" || defaultCategory == category.All {
		defaultCategory = category.Other
	}

	return Form{
		Type:      otp.TypeTOTP,
		Category:  defaultCategory,
		Algorithm: otp.SHA1,
		Digits:    strconv.Itoa(otp.DefaultDigits),
		Period:    strconv.FormatInt(otp.DefaultPeriod, 10),
		Counter:   "0",
	}
}

// FormFromDescriptor pre-fills a form from a parsed URI so the user
// can complete what the URI lacked.
func FormFromDescriptor(d *otpauth.Descriptor) Form {
	var f Form = NewForm(category.Other)

	if d == nil {
		return f
	}

	var a Account = FromDescriptor(d)

	f.Name = a.Name
	f.Email = a.Email
	f.Issuer = a.Issuer
	f.Secret = a.Secret
	f.Type = a.Type
	f.Category = a.Category
	f.Algorithm = a.Algorithm
	f.Digits = strconv.Itoa(a.Digits)
	f.Counter = strconv.FormatUint(a.Counter, 10)
	f.PIN = a.PIN

	if a.Period != 0 {
		f.Period = strconv.FormatInt(a.Period, 10)
	}

	return f
}

// ParseForm validates the form and builds the account it describes.
// Checks run in the order the entry screen reports them.
func ParseForm(f Form) (Account, error) {
	switch {
	case strings.TrimSpace(f.Name) == "":
		return Account{}, invalid("name", "is required")
	case strings.TrimSpace(f.Email) == "":
		return Account{}, invalid("email", "is required")
	case strings.TrimSpace(f.Secret) == "":
		return Account{}, invalid("secret", "is required")
	}

	if f.Type == "" {
		f.Type = otp.TypeTOTP
	}

	if f.Type == otp.TypeMOTP && f.PIN == "" {
		return Account{}, invalid("pin", "is required for mOTP")
	}

	var a Account = Account{
		Name:      f.Name,
		Email:     f.Email,
		Issuer:    strings.TrimSpace(f.Issuer),
		Secret:    f.Secret,
		Type:      f.Type,
		Category:  f.Category,
		Algorithm: f.Algorithm,
		PIN:       f.PIN,
	}

	if f.Type == otp.TypeHOTP {
		counter, err := strconv.ParseUint(strings.TrimSpace(f.Counter), 10, 64)
		if err != nil {
			return Account{}, invalid("counter", "valid counter is required for HOTP")
		}

		a.Counter = counter
	}

	if err := validateSecret(f.Type, f.Secret); err != nil {
		return Account{}, err
	}

	digits, err := strconv.Atoi(strings.TrimSpace(f.Digits))
	if err != nil || digits < otp.MinDigits || digits > otp.MaxDigits {
		return Account{}, invalid("digits", "must be between %d and %d", otp.MinDigits, otp.MaxDigits)
	}

	a.Digits = digits

	if f.Type == otp.TypeTOTP {
		period, err := strconv.ParseInt(strings.TrimSpace(f.Period), 10, 64)
		if err != nil || period < otp.MinPeriod || period > otp.MaxPeriod {
			return Account{}, invalid("period", "must be between %d and %d seconds", otp.MinPeriod, otp.MaxPeriod)
		}

		a.Period = period
	}

	a.normalize()

	return a, a.Validate()
}

// FromDescriptor builds an account from a parsed URI. The result is
// not validated; a URI may lack fields the account requires.
func FromDescriptor(d *otpauth.Descriptor) Account {
	var a Account = Account{
		Name:      d.Name,
		Issuer:    d.Issuer,
		Secret:    d.Secret,
		Type:      d.Type,
		Algorithm: d.Algorithm,
		Digits:    d.Digits,
		Period:    d.Period,
		Counter:   d.Counter,
		PIN:       d.PIN,
	}

	if a.Digits == 0 {
		a.Digits = otp.DefaultDigits
	}

	// The label usually carries the login; fall back to the issuer
	if strings.Contains(d.Name, "@") {
		a.Email = d.Name
	} else {
		a.Email = d.Issuer
	}

	if a.Name == "" {
		a.Name = d.Issuer
	}

	a.Category = category.Classify(a.Name + " " + a.Issuer)

	a.normalize()

	return a
}
