package otpkit

import (
	"fmt"
	"sync"
	"time"

	"github.com/tim-projects/otpkit/account"
	"github.com/tim-projects/otpkit/otp"
)

type cachedCode struct {
	window uint64
	period int64
	code   string
}

// Refresher serves display codes for time-based accounts, hashing
// only when an account crosses into a new time step.
// It is safe for concurrent use.
type Refresher struct {
	mu    sync.Mutex
	codes map[string]cachedCode
}

func NewRefresher() *Refresher {
	return &Refresher{codes: make(map[string]cachedCode)}
}

// Code returns the account's code at now and whether it was
// recomputed. HOTP accounts are not served; their codes consume
// the counter.
func (r *Refresher) Code(a account.Account, now time.Time) (otp.GeneratedCode, bool, error) {
	var period int64

	switch a.Type {
	case otp.TypeTOTP:
		period = a.Period
		if period == 0 {
			period = otp.DefaultPeriod
		}
	case otp.TypeSteam, otp.TypeMOTP:
		period = otp.DefaultPeriod
	case otp.TypeEmailOTP:
		code, err := a.Code(now)
		return code, false, err
	default:
		return otp.GeneratedCode{}, false, fmt.Errorf("%w: %s is not time based", otp.ErrUnsupportedType, a.Type)
	}

	window, remaining := otp.Window(now.Unix(), period)

	r.mu.Lock()
	cached, ok := r.codes[a.ID]
	r.mu.Unlock()

	if ok && cached.window == window && cached.period == period {
		return otp.GeneratedCode{Code: cached.code, TimeRemaining: remaining, Period: period}, false, nil
	}

	code, err := a.Code(now)
	if err != nil {
		return otp.GeneratedCode{}, false, err
	}

	r.mu.Lock()
	r.codes[a.ID] = cachedCode{window: window, period: period, code: code.Code}
	r.mu.Unlock()

	return code, true, nil
}

// Forget drops the cached code, e.g. after the account is edited.
func (r *Refresher) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.codes, id)
}
