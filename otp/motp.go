package otp

import (
	"encoding/hex"
	"strconv"
	"strings"
)

const motpDigits int = 6

type MOTP struct {
	code   string
	digits int
}

// Digits returns the character/digit length of the OTP.
func (motp MOTP) Digits() int {
	return motp.digits
}

// String returns the calculated OTP
// used to authenticate with a service.
func (motp MOTP) String() string {
	return motp.code[0:motp.digits]
}

// Generates an MOTP at the specified time in seconds.
//
// The digest is MD5 over the time step, the secret text and the PIN;
// the period is always 30 seconds and the code six hex characters.
func GenerateMOTPAt(secret string, pin string, sec int64) (MOTP, error) {
	var secretStr string = strings.TrimSpace(secret)

	if !ValidateMOTPSecret(secretStr) {
		return MOTP{}, ErrInvalidSecret
	}

	timeCounter, _ := Window(sec, DefaultPeriod)

	var toDigest string = strconv.FormatUint(timeCounter, 10) + secretStr + pin

	var code string = hex.EncodeToString(md5Digest([]byte(toDigest)))

	return MOTP{code: code, digits: motpDigits}, nil
}
