package otp

import "strings"

const (
	steamAlpha  string = "23456789BCDFGHJKMNPQRTVWXY"
	steamDigits int    = 5
)

type SteamOTP struct {
	code   int64
	digits int
}

// Digits returns the character/digit length of the OTP.
func (sotp SteamOTP) Digits() int {
	return sotp.digits
}

// String returns the calculated OTP
// used to authenticate with a service.
func (sotp SteamOTP) String() string {
	var alphabetLen int64 = int64(len(steamAlpha))

	var code int64 = sotp.code

	var builder strings.Builder

	for i := 0; i < sotp.digits; i++ {
		builder.WriteByte(steamAlpha[code%alphabetLen])

		code /= alphabetLen
	}

	return builder.String()
}

// Generates a Steam OTP at the specified time in seconds.
// Steam Guard always uses SHA1, five characters and a 30 second period.
func GenerateSteamOTPAt(key []byte, seconds int64) (SteamOTP, error) {
	counter, _ := Window(seconds, DefaultPeriod)

	value, err := HOTPValue(key, counter, SHA1)
	if err != nil {
		return SteamOTP{}, err
	}

	return SteamOTP{code: int64(value), digits: steamDigits}, nil
}
