package otp

import "fmt"

// TOTP is an HOTP keyed by a time-derived counter.
type TOTP struct {
	HOTP
}

// Window returns the time-step counter for the unix time and
// the seconds left before the next step. The seconds left are in
// (0, period]: never 0, and exactly period at a step boundary, so
// callers should watch the counter rather than wait for a zero.
func Window(seconds int64, period int64) (uint64, int64) {
	var counter int64 = seconds / period
	var rem int64 = seconds % period

	// Floor for instants before the epoch
	if rem < 0 {
		counter--
		rem += period
	}

	return uint64(counter), period - rem
}

// Generates a TOTP at the specified time in seconds
func GenerateTOTPAt(key []byte, algo Algorithm, digits int, period int64, seconds int64) (TOTP, error) {
	if period < MinPeriod || period > MaxPeriod {
		return TOTP{}, fmt.Errorf("%w: %d", ErrInvalidPeriod, period)
	}

	counter, _ := Window(seconds, period)

	hotp, err := GenerateHOTP(key, counter, digits, algo)
	if err != nil {
		return TOTP{}, err
	}

	return TOTP{hotp}, nil
}
