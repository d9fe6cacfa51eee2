package account_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
	"github.com/tim-projects/otpkit/otpauth"
)

func filledForm() account.Form {
	f := account.NewForm(category.Other)
	f.Name = "GitHub"
	f.Email = "alice@example.com"
	f.Secret = "jbsw y3dp ehpk 3pxp"

	return f
}

func TestNewForm_Defaults(t *testing.T) {
	f := account.NewForm(category.All)

	assert.Equal(t, otp.TypeTOTP, f.Type)
	assert.Equal(t, category.Other, f.Category)
	assert.Equal(t, "6", f.Digits)
	assert.Equal(t, "30", f.Period)
	assert.Equal(t, "0", f.Counter)
}

func TestParseForm_TOTP(t *testing.T) {
	a, err := account.ParseForm(filledForm())
	require.NoError(t, err)

	assert.Equal(t, otp.TypeTOTP, a.Type)
	assert.Equal(t, "jbsw y3dp ehpk 3pxp", a.Secret)
	assert.Equal(t, 6, a.Digits)
	assert.Equal(t, int64(30), a.Period)
	assert.Equal(t, otp.SHA1, a.Algorithm)
}

func TestParseForm_HOTP(t *testing.T) {
	f := filledForm()
	f.Type = otp.TypeHOTP
	f.Counter = "17"
	f.Period = "junk"

	a, err := account.ParseForm(f)
	require.NoError(t, err)
	assert.Equal(t, uint64(17), a.Counter)
	assert.Zero(t, a.Period)
}

func TestParseForm_MOTP(t *testing.T) {
	f := filledForm()
	f.Type = otp.TypeMOTP
	f.Secret = "1234567890abcdef"
	f.PIN = "1234"

	a, err := account.ParseForm(f)
	require.NoError(t, err)
	assert.Equal(t, "1234", a.PIN)
	assert.Equal(t, int64(30), a.Period)

	code, err := a.Code(time.Unix(1700000000, 0))
	require.NoError(t, err)
	assert.Equal(t, "a34191", code.Code)
}

func TestParseForm_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*account.Form)
		field  string
	}{
		{"name", func(f *account.Form) { f.Name = " " }, "name"},
		{"email", func(f *account.Form) { f.Email = "" }, "email"},
		{"secret", func(f *account.Form) { f.Secret = "" }, "secret"},
		{"pin required", func(f *account.Form) { f.Type = otp.TypeMOTP; f.Secret = "abcd" }, "pin"},
		{"counter", func(f *account.Form) { f.Type = otp.TypeHOTP; f.Counter = "x" }, "counter"},
		{"negative counter", func(f *account.Form) { f.Type = otp.TypeHOTP; f.Counter = "-2" }, "counter"},
		{"secret format", func(f *account.Form) { f.Secret = "0189" }, "secret"},
		{"digits", func(f *account.Form) { f.Digits = "10" }, "digits"},
		{"digits text", func(f *account.Form) { f.Digits = "six" }, "digits"},
		{"period", func(f *account.Form) { f.Period = "0" }, "period"},
		{"period high", func(f *account.Form) { f.Period = "301" }, "period"},
	}

	for _, tt := range tests {
		f := filledForm()
		tt.mutate(&f)

		_, err := account.ParseForm(f)
		assert.Equal(t, tt.field, fieldOf(t, err), tt.name)
	}
}

func TestFormFromDescriptor(t *testing.T) {
	d, err := otpauth.Parse("otpauth://hotp/Bank:?secret=JBSWY3DPEHPK3PXP&counter=5&digits=8")
	require.NoError(t, err)

	f := account.FormFromDescriptor(d)
	assert.Equal(t, "Bank", f.Name)
	assert.Equal(t, "Bank", f.Issuer)
	assert.Equal(t, otp.TypeHOTP, f.Type)
	assert.Equal(t, "5", f.Counter)
	assert.Equal(t, "8", f.Digits)
	assert.Equal(t, "30", f.Period)
	assert.Equal(t, category.Finance, f.Category)

	empty := account.FormFromDescriptor(nil)
	assert.Equal(t, account.NewForm(category.Other), empty)
}
