package otp

import (
	"fmt"
	"math"
	"strconv"
)

type HOTP struct {
	code   int64
	digits int
}

// Digits returns the character/digit length of the OTP.
func (hotp HOTP) Digits() int {
	return hotp.digits
}

// String returns the calculated OTP
// used to authenticate with a service.
func (hotp HOTP) String() string {
	var code int64 = hotp.code % int64(math.Pow10(hotp.digits))
	var s string = strconv.FormatInt(code, 10)

	// Left-pad with zeroes up to the digit length
	for len(s) < hotp.digits {
		s = "0" + s
	}

	return s
}

// GenerateHOTP generates the HOTP for the counter value.
//
// The counter is not advanced; callers persist NextCounter(counter)
// once the code has been shown.
func GenerateHOTP(key []byte, counter uint64, digits int, algo Algorithm) (HOTP, error) {
	if digits < MinDigits || digits > MaxDigits {
		return HOTP{}, fmt.Errorf("%w: %d", ErrInvalidDigits, digits)
	}

	value, err := HOTPValue(key, counter, algo)
	if err != nil {
		return HOTP{}, err
	}

	return HOTP{code: int64(value), digits: digits}, nil
}

// NextCounter returns the counter that follows c.
// A counter at the top of the uint64 range cannot be advanced.
func NextCounter(c uint64) (uint64, error) {
	if c == math.MaxUint64 {
		return c, ErrCounterExhausted
	}

	return c + 1, nil
}
