package account

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
)

// Provider is the mail service behind a linked email account.
type Provider string

const (
	ProviderGmail   Provider = "gmail"
	ProviderOutlook Provider = "outlook"
	ProviderYahoo   Provider = "yahoo"
	ProviderOther   Provider = "other"
)

// EmailAccount is a mailbox linked for verification-code import.
type EmailAccount struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Provider    Provider   `json:"provider"`
	IsConnected bool       `json:"isConnected"`
	LastSync    *time.Time `json:"lastSync,omitempty"`
}

// EmailVerification is a verification message found in a linked mailbox.
// Confirmation messages carry an action link instead of a code.
type EmailVerification struct {
	ID             string     `json:"id"`
	From           string     `json:"from"`
	Subject        string     `json:"subject"`
	Code           string     `json:"code,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	IsConfirmation bool       `json:"isConfirmation"`
	ActionURL      string     `json:"actionUrl,omitempty"`
	ReceivedAt     time.Time  `json:"receivedAt"`
	IsCompleted    bool       `json:"isCompleted"`
}

// ProviderFor guesses the provider from the address domain.
func ProviderFor(email string) Provider {
	var domain string = strings.ToLower(email[strings.LastIndex(email, "@")+1:])

	switch {
	case domain == "gmail.com" || domain == "googlemail.com":
		return ProviderGmail
	case domain == "outlook.com" || domain == "hotmail.com" || domain == "live.com":
		return ProviderOutlook
	case strings.HasPrefix(domain, "yahoo."):
		return ProviderYahoo
	}

	return ProviderOther
}

// LinkEmail records a mailbox for verification-code import. It starts
// disconnected until the provider grants access.
func LinkEmail(email string) (EmailAccount, error) {
	email = strings.TrimSpace(email)

	if err := validate.Var(email, "required,email"); err != nil {
		return EmailAccount{}, invalid("email", "%q is not an email address", email)
	}

	return EmailAccount{
		ID:       uuid.NewString(),
		Email:    email,
		Provider: ProviderFor(email),
	}, nil
}

// FromVerification turns a verification carrying a code into a
// temporary EMAIL_OTP account that holds the code until it expires.
func FromVerification(v EmailVerification) (Account, error) {
	var code string = strings.TrimSpace(v.Code)

	if v.IsConfirmation || code == "" {
		return Account{}, invalid("code", "verification carries no code")
	}

	if v.IsCompleted {
		return Account{}, invalid("code", "verification already completed")
	}

	var name string = strings.TrimSpace(v.Subject)
	if name == "" {
		name = v.From
	}

	var a Account = Account{
		Name:        name,
		Email:       v.From,
		Secret:      code,
		Type:        otp.TypeEmailOTP,
		Category:    category.Classify(v.From + " " + v.Subject),
		Digits:      otp.DefaultDigits,
		IsTemporary: true,
		ExpiresAt:   v.ExpiresAt,
	}

	if n := len(code); n >= otp.MinDigits && n <= otp.MaxDigits {
		a.Digits = n
	}

	a.normalize()

	return a, a.Validate()
}
