// Package otpkit adds authenticator accounts from provisioning URIs,
// manual entry and imports, and generates their One-Time Passwords.
package otpkit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/addflow"
	"github.com/tim-projects/otpkit/category"
	"github.com/tim-projects/otpkit/otp"
	"github.com/tim-projects/otpkit/otpauth"
	"github.com/tim-projects/otpkit/vault"
)

// Attempts made to advance an HOTP counter that another writer moved.
const maxCounterRetries int = 3

var ErrIncomplete = errors.New("otpkit: incomplete account data")

// FallbackError reports an account that could not be added as given,
// carrying a form pre-filled with whatever was recovered.
type FallbackError struct {
	Form account.Form
	Err  error
}

func (e *FallbackError) Error() string {
	return e.Err.Error()
}

func (e *FallbackError) Unwrap() error {
	return e.Err
}

// Keeper adds accounts to a store and generates their codes.
type Keeper struct {
	store           account.Store
	logger          *zap.Logger
	now             func() time.Time
	defaultCategory category.Category
}

type Option func(*Keeper)

func WithLogger(logger *zap.Logger) Option {
	return func(k *Keeper) {
		if logger != nil {
			k.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(k *Keeper) {
		k.now = now
	}
}

// WithDefaultCategory sets the category new manual forms start with.
func WithDefaultCategory(c category.Category) Option {
	return func(k *Keeper) {
		k.defaultCategory = c
	}
}

func NewKeeper(store account.Store, opts ...Option) *Keeper {
	var k *Keeper = &Keeper{
		store:           store,
		logger:          zap.NewNop(),
		now:             time.Now,
		defaultCategory: category.Other,
	}

	for _, opt := range opts {
		opt(k)
	}

	return k
}

// NewForm returns an empty manual-entry form.
func (k *Keeper) NewForm() account.Form {
	return account.NewForm(k.defaultCategory)
}

// AddFlow returns an add-account flow whose mailbox results are
// stored through ImportVerifications.
func (k *Keeper) AddFlow() *addflow.Machine {
	return addflow.New(k.defaultCategory, addflow.WithImporter(func(ctx context.Context, found []account.EmailVerification) error {
		_, err := k.ImportVerifications(ctx, found)
		return err
	}))
}

// AddFromURI parses a scanned or pasted otpauth URI and stores the
// account. When the URI is malformed or lacks required data, the
// returned error is a *FallbackError holding a pre-filled form.
func (k *Keeper) AddFromURI(ctx context.Context, uri string) (account.Account, error) {
	d, err := otpauth.Parse(uri)
	if err != nil {
		k.logger.Info("uri rejected, falling back to manual entry", zap.Error(err))

		return account.Account{}, &FallbackError{Form: k.NewForm(), Err: err}
	}

	var a account.Account = account.FromDescriptor(d)

	if a.Name == "" || a.Email == "" || a.Secret == "" {
		k.logger.Info("uri incomplete, falling back to manual entry", zap.String("type", string(d.Type)))

		return account.Account{}, &FallbackError{Form: account.FormFromDescriptor(d), Err: ErrIncomplete}
	}

	saved, err := k.store.Add(ctx, a)
	if err != nil {
		// Keep what was scanned so the user can correct it
		return account.Account{}, &FallbackError{Form: account.FormFromDescriptor(d), Err: err}
	}

	k.logger.Info("account added",
		zap.String("id", saved.ID),
		zap.String("type", string(saved.Type)),
		zap.String("source", "uri"))

	return saved, nil
}

// AddManual validates a manual-entry form and stores the account.
func (k *Keeper) AddManual(ctx context.Context, form account.Form) (account.Account, error) {
	a, err := account.ParseForm(form)
	if err != nil {
		return account.Account{}, err
	}

	saved, err := k.store.Add(ctx, a)
	if err != nil {
		return account.Account{}, err
	}

	k.logger.Info("account added",
		zap.String("id", saved.ID),
		zap.String("type", string(saved.Type)),
		zap.String("source", "manual"))

	return saved, nil
}

// Import stores each account as if it had been entered manually.
//
// If there's an error, the successfully stored accounts will
// be returned along with the joined errors.
func (k *Keeper) Import(ctx context.Context, accounts []account.Account) ([]account.Account, error) {
	var saved []account.Account
	var errs []error

	for _, a := range accounts {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		s, err := k.store.Add(ctx, a)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.Name, err))
			continue
		}

		saved = append(saved, s)
	}

	k.logger.Info("import finished", zap.Int("added", len(saved)), zap.Int("failed", len(errs)))

	return saved, errors.Join(errs...)
}

// ImportVault imports the entries of an Aegis backup, decrypting it
// with pwd when needed.
func (k *Keeper) ImportVault(ctx context.Context, path string, pwd string) ([]account.Account, error) {
	v, err := vault.Open(path, pwd)
	if err != nil {
		return nil, err
	}

	accounts, convErrs := v.Db.Accounts()

	saved, err := k.Import(ctx, accounts)

	return saved, errors.Join(append(convErrs, err)...)
}

// ImportVerifications stores the codes found in verification emails
// as temporary accounts.
func (k *Keeper) ImportVerifications(ctx context.Context, verifications []account.EmailVerification) ([]account.Account, error) {
	var accounts []account.Account
	var errs []error

	for _, v := range verifications {
		a, err := account.FromVerification(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("verification %s: %w", v.ID, err))
			continue
		}

		accounts = append(accounts, a)
	}

	saved, err := k.Import(ctx, accounts)

	return saved, errors.Join(append(errs, err)...)
}

// Code generates the current code for the account. HOTP accounts
// consume a counter value; see NextHOTP.
func (k *Keeper) Code(ctx context.Context, id string) (otp.GeneratedCode, error) {
	a, err := k.store.Get(ctx, id)
	if err != nil {
		return otp.GeneratedCode{}, err
	}

	if a.Type == otp.TypeHOTP {
		return k.NextHOTP(ctx, id)
	}

	return a.Code(k.now())
}

// NextHOTP generates the code at the stored counter and advances the
// counter before returning it, so no code is shown twice.
func (k *Keeper) NextHOTP(ctx context.Context, id string) (otp.GeneratedCode, error) {
	for attempt := 0; attempt < maxCounterRetries; attempt++ {
		a, err := k.store.Get(ctx, id)
		if err != nil {
			return otp.GeneratedCode{}, err
		}

		if a.Type != otp.TypeHOTP {
			return otp.GeneratedCode{}, fmt.Errorf("%w: %s is %s", otp.ErrUnsupportedType, id, a.Type)
		}

		code, err := a.Code(k.now())
		if err != nil {
			return otp.GeneratedCode{}, err
		}

		advanced, err := k.store.AdvanceCounter(ctx, id, a.Counter)
		if errors.Is(err, account.ErrStaleCounter) {
			k.logger.Debug("hotp counter moved, retrying", zap.String("id", id), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return otp.GeneratedCode{}, err
		}

		k.logger.Debug("hotp counter advanced", zap.String("id", id), zap.Uint64("counter", advanced.Counter))

		return code, nil
	}

	return otp.GeneratedCode{}, fmt.Errorf("%w: %s", account.ErrStaleCounter, id)
}

// Codes generates codes for every time-based account in the store and
// returns a map matching each account's id and code. HOTP accounts are
// skipped because generating their code consumes the counter.
//
// If there's an error, the successfully generated codes will
// be returned along with the error.
func (k *Keeper) Codes(ctx context.Context) (map[string]otp.GeneratedCode, error) {
	accounts, err := k.store.List(ctx)
	if err != nil {
		return nil, err
	}

	var now time.Time = k.now()
	var codes map[string]otp.GeneratedCode = make(map[string]otp.GeneratedCode)
	var errs []error

	for _, a := range accounts {
		if a.Type == otp.TypeHOTP {
			continue
		}

		code, err := a.Code(now)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", a.ID, err))
			continue
		}

		codes[a.ID] = code
	}

	return codes, errors.Join(errs...)
}
