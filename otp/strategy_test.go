package otp_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tim-projects/otpkit/otp"
)

func TestGenerate_TOTP(t *testing.T) {
	now := time.Unix(1700000000, 0)

	code, err := otp.Generate(otp.TypeTOTP, "JBSWY3DPEHPK3PXP", otp.Params{Algorithm: otp.SHA1, Digits: 6, Period: 30}, now)
	require.NoError(t, err)
	assert.Equal(t, "324550", code.Code)
	assert.Equal(t, int64(10), code.TimeRemaining)
	assert.Equal(t, int64(30), code.Period)
}

func TestGenerate_TOTPDefaults(t *testing.T) {
	now := time.Unix(1700000000, 0)

	code, err := otp.Generate(otp.TypeTOTP, "JBSWY3DPEHPK3PXP", otp.Params{}, now)
	require.NoError(t, err)
	assert.Equal(t, "324550", code.Code)
	assert.Equal(t, int64(30), code.Period)
}

func TestGenerate_HOTPIsPure(t *testing.T) {
	params := otp.Params{Algorithm: otp.SHA1, Digits: 6, Counter: 0}

	first, err := otp.Generate(otp.TypeHOTP, "JBSWY3DPEHPK3PXP", params, time.Now())
	require.NoError(t, err)
	second, err := otp.Generate(otp.TypeHOTP, "JBSWY3DPEHPK3PXP", params, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, "282760", first.Code)
	assert.Equal(t, first, second)
	assert.Zero(t, first.TimeRemaining)
	assert.Zero(t, first.Period)

	params.Counter, err = otp.NextCounter(params.Counter)
	require.NoError(t, err)

	third, err := otp.Generate(otp.TypeHOTP, "JBSWY3DPEHPK3PXP", params, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "996554", third.Code)
}

func TestGenerate_SteamIgnoresParams(t *testing.T) {
	now := time.Unix(9876543210*30, 0)

	code, err := otp.Generate(otp.TypeSteam, "CQKQQEQRAAR777X5", otp.Params{Digits: 8, Period: 60, Algorithm: otp.SHA512}, now)
	require.NoError(t, err)
	assert.Equal(t, "3KNKF", code.Code)
	assert.Equal(t, int64(30), code.Period)
}

func TestGenerate_MOTP(t *testing.T) {
	now := time.Unix(1700000000, 0)

	code, err := otp.Generate(otp.TypeMOTP, "1234567890abcdef", otp.Params{PIN: "1234", Period: 10}, now)
	require.NoError(t, err)
	assert.Equal(t, "a34191", code.Code)
	assert.Equal(t, int64(30), code.Period)
	assert.Equal(t, int64(10), code.TimeRemaining)
}

func TestGenerate_EmailOTP(t *testing.T) {
	now := time.Unix(1700000000, 0)

	code, err := otp.Generate(otp.TypeEmailOTP, " 482913 ", otp.Params{ExpiresAt: now.Add(90 * time.Second)}, now)
	require.NoError(t, err)
	assert.Equal(t, "482913", code.Code)
	assert.Equal(t, int64(90), code.TimeRemaining)

	_, err = otp.Generate(otp.TypeEmailOTP, "482913", otp.Params{ExpiresAt: now.Add(-time.Second)}, now)
	assert.ErrorIs(t, err, otp.ErrExpired)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := otp.Generate(otp.Type("yaotp"), "JBSWY3DPEHPK3PXP", otp.Params{}, time.Now())
	assert.ErrorIs(t, err, otp.ErrUnsupportedType)

	_, err = otp.Generate(otp.TypeTOTP, "not base32!", otp.Params{}, time.Now())
	assert.ErrorIs(t, err, otp.ErrInvalidSecret)
}
