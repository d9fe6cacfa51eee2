package otp

import (
	"fmt"
	"strings"
	"time"
)

// Params carries the per-account inputs a strategy needs.
type Params struct {
	Algorithm Algorithm
	Digits    int
	Period    int64
	Counter   uint64
	PIN       string
	ExpiresAt time.Time
}

// GeneratedCode is a code ready for display.
// TimeRemaining and Period are zero for codes that are not time bound.
type GeneratedCode struct {
	Code          string `json:"code"`
	TimeRemaining int64  `json:"timeRemaining"`
	Period        int64  `json:"period"`
}

// Strategy produces codes for one OTP variant.
type Strategy interface {
	Produce(secret string, p Params, now time.Time) (GeneratedCode, error)
}

type totpStrategy struct{}

type hotpStrategy struct{}

type motpStrategy struct{}

type steamStrategy struct{}

type emailStrategy struct{}

// StrategyFor returns the strategy for the variant.
func StrategyFor(t Type) (Strategy, error) {
	switch t {
	case TypeTOTP:
		return totpStrategy{}, nil
	case TypeHOTP:
		return hotpStrategy{}, nil
	case TypeMOTP:
		return motpStrategy{}, nil
	case TypeSteam:
		return steamStrategy{}, nil
	case TypeEmailOTP:
		return emailStrategy{}, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnsupportedType, t)
}

// Generate dispatches to the variant's strategy.
func Generate(t Type, secret string, p Params, now time.Time) (GeneratedCode, error) {
	strategy, err := StrategyFor(t)
	if err != nil {
		return GeneratedCode{}, err
	}

	return strategy.Produce(secret, p, now)
}

func (totpStrategy) Produce(secret string, p Params, now time.Time) (GeneratedCode, error) {
	key, err := Decode(secret)
	if err != nil {
		return GeneratedCode{}, err
	}

	var period int64 = p.Period
	if period == 0 {
		period = DefaultPeriod
	}

	totp, err := GenerateTOTPAt(key, p.Algorithm, digitsOrDefault(p.Digits), period, now.Unix())
	if err != nil {
		return GeneratedCode{}, err
	}

	return timedCode(totp, now, period), nil
}

func (hotpStrategy) Produce(secret string, p Params, _ time.Time) (GeneratedCode, error) {
	key, err := Decode(secret)
	if err != nil {
		return GeneratedCode{}, err
	}

	hotp, err := GenerateHOTP(key, p.Counter, digitsOrDefault(p.Digits), p.Algorithm)
	if err != nil {
		return GeneratedCode{}, err
	}

	return GeneratedCode{Code: hotp.String()}, nil
}

func (motpStrategy) Produce(secret string, p Params, now time.Time) (GeneratedCode, error) {
	motp, err := GenerateMOTPAt(secret, p.PIN, now.Unix())
	if err != nil {
		return GeneratedCode{}, err
	}

	return timedCode(motp, now, DefaultPeriod), nil
}

func (steamStrategy) Produce(secret string, _ Params, now time.Time) (GeneratedCode, error) {
	key, err := Decode(secret)
	if err != nil {
		return GeneratedCode{}, err
	}

	sotp, err := GenerateSteamOTPAt(key, now.Unix())
	if err != nil {
		return GeneratedCode{}, err
	}

	return timedCode(sotp, now, DefaultPeriod), nil
}

// Email codes arrive already generated; the secret holds the code itself.
func (emailStrategy) Produce(secret string, p Params, now time.Time) (GeneratedCode, error) {
	var code string = strings.TrimSpace(secret)
	if code == "" {
		return GeneratedCode{}, ErrInvalidSecret
	}

	if p.ExpiresAt.IsZero() {
		return GeneratedCode{Code: code}, nil
	}

	var remaining int64 = int64(p.ExpiresAt.Sub(now) / time.Second)
	if remaining <= 0 {
		return GeneratedCode{}, ErrExpired
	}

	return GeneratedCode{Code: code, TimeRemaining: remaining}, nil
}

// timedCode wraps a time-based code with the seconds left in its window.
func timedCode(o OTP, now time.Time, period int64) GeneratedCode {
	_, remaining := Window(now.Unix(), period)

	return GeneratedCode{Code: o.String(), TimeRemaining: remaining, Period: period}
}

func digitsOrDefault(digits int) int {
	if digits == 0 {
		return DefaultDigits
	}

	return digits
}
