// Package otpauth handles the otpauth:// URI format used by
// provisioning QR codes.
//
// The general form of an OTP URI is:
//
//	otpauth://TYPE/LABEL?PARAMETERS
//
// See https://github.com/google/google-authenticator/wiki/Key-Uri-Format
package otpauth

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	pqotp "github.com/pquerna/otp"

	"github.com/tim-projects/otpkit/otp"
)

const scheme string = "otpauth"

// ErrParse is wrapped by every error Parse returns.
var ErrParse = errors.New("otpauth: parse failure")

// Descriptor is a parsed otpauth URI.
// Only Type is always set; missing parameters take their defaults.
type Descriptor struct {
	Type      otp.Type      `json:"type"`
	Name      string        `json:"name"`
	Issuer    string        `json:"issuer,omitempty"`
	Secret    string        `json:"secret"`
	Algorithm otp.Algorithm `json:"algorithm"`
	Digits    int           `json:"digits"`
	Period    int64         `json:"period,omitempty"`
	Counter   uint64        `json:"counter,omitempty"`
	PIN       string        `json:"pin,omitempty"`
}

func parseErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Parse parses an otpauth URI.
//
// On any failure it returns a nil descriptor, never a partial one.
// When the label and the issuer parameter disagree, the parameter wins.
func Parse(uri string) (*Descriptor, error) {
	u, err := url.Parse(strings.TrimSpace(uri))
	if err != nil {
		return nil, parseErr("%v", err)
	}

	if !strings.EqualFold(u.Scheme, scheme) {
		return nil, parseErr("invalid scheme %q", u.Scheme)
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, parseErr("invalid query: %v", err)
	}

	var d Descriptor = Descriptor{
		Algorithm: otp.SHA1,
		Digits:    otp.DefaultDigits,
	}

	d.Type, err = resolveType(strings.ToLower(u.Host), query)
	if err != nil {
		return nil, err
	}

	if err = d.parseLabel(u); err != nil {
		return nil, err
	}

	d.Secret = strings.TrimSpace(query.Get("secret"))
	if d.Secret == "" {
		return nil, parseErr("missing secret")
	}

	if issuer := strings.TrimSpace(query.Get("issuer")); issuer != "" {
		d.Issuer = issuer
	}

	if name := query.Get("algorithm"); name != "" {
		d.Algorithm, err = otp.ParseAlgorithm(strings.ToUpper(name))
		if err != nil {
			return nil, parseErr("%v", err)
		}
	}

	// Numeric parameters are checked even when the variant ignores them
	digits, err := intParam(query, "digits", int64(otp.DefaultDigits))
	if err != nil {
		return nil, err
	}

	period, err := intParam(query, "period", otp.DefaultPeriod)
	if err != nil {
		return nil, err
	}

	counter, err := uintParam(query, "counter")
	if err != nil {
		return nil, err
	}

	d.Digits = int(digits)

	switch d.Type {
	case otp.TypeTOTP:
		d.Period = period
	case otp.TypeHOTP:
		d.Counter = counter
	case otp.TypeSteam:
		d.Digits = 5
		d.Period = otp.DefaultPeriod
	case otp.TypeMOTP:
		d.Digits = 6
		d.Period = otp.DefaultPeriod
		d.PIN = query.Get("pin")
	}

	return &d, nil
}

// resolveType maps the URI host and vendor markers to a variant.
func resolveType(host string, query url.Values) (otp.Type, error) {
	switch host {
	case "totp":
		if isSteam(query) {
			return otp.TypeSteam, nil
		}

		return otp.TypeTOTP, nil
	case "hotp":
		return otp.TypeHOTP, nil
	case "steam":
		return otp.TypeSteam, nil
	case "motp":
		return otp.TypeMOTP, nil
	}

	return "", parseErr("unsupported type %q", host)
}

// isSteam recognizes the Steam markers other authenticators emit on totp URIs.
func isSteam(query url.Values) bool {
	if strings.EqualFold(query.Get("encoder"), "steam") {
		return true
	}

	return strings.EqualFold(query.Get("issuer"), "steam") && query.Get("digits") == "5"
}

// parseLabel splits "issuer:name" before unescaping, so escaped colons
// stay inside their part. Labels without a literal colon may escape
// the separator itself.
func (d *Descriptor) parseLabel(u *url.URL) error {
	var raw string = strings.TrimPrefix(u.EscapedPath(), "/")

	issuer, name, found := strings.Cut(raw, ":")
	if !found {
		issuer, name = "", raw

		if i := strings.Index(strings.ToUpper(raw), "%3A"); i >= 0 {
			issuer, name = raw[:i], raw[i+3:]
		}
	}

	issuer, err := url.PathUnescape(issuer)
	if err != nil {
		return parseErr("invalid label: %v", err)
	}

	name, err = url.PathUnescape(name)
	if err != nil {
		return parseErr("invalid label: %v", err)
	}

	d.Issuer = strings.TrimSpace(issuer)
	d.Name = strings.TrimSpace(name)

	return nil
}

// escapeLabel escapes one part of a label, including the colons
// PathEscape leaves alone.
func escapeLabel(s string) string {
	return strings.ReplaceAll(url.PathEscape(s), ":", "%3A")
}

func intParam(query url.Values, key string, def int64) (int64, error) {
	var raw string = query.Get(key)
	if raw == "" {
		return def, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, parseErr("invalid %s %q", key, raw)
	}

	return n, nil
}

func uintParam(query url.Values, key string) (uint64, error) {
	var raw string = query.Get(key)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, parseErr("invalid %s %q", key, raw)
	}

	return n, nil
}

// String encodes the descriptor as an otpauth URI.
func (d *Descriptor) String() string {
	var host string = strings.ToLower(string(d.Type))
	var label string = escapeLabel(d.Name)

	// An empty issuer still gets its separator when the name has a colon
	if d.Issuer != "" || strings.Contains(d.Name, ":") {
		label = escapeLabel(d.Issuer) + ":" + label
	}

	var v url.Values = url.Values{}
	v.Set("secret", d.Secret)

	if d.Issuer != "" {
		v.Set("issuer", d.Issuer)
	}

	switch d.Type {
	case otp.TypeTOTP, otp.TypeHOTP:
		v.Set("algorithm", string(d.Algorithm))
		v.Set("digits", strconv.Itoa(d.Digits))
	}

	switch d.Type {
	case otp.TypeTOTP:
		v.Set("period", strconv.FormatInt(d.Period, 10))
	case otp.TypeHOTP:
		v.Set("counter", strconv.FormatUint(d.Counter, 10))
	case otp.TypeMOTP:
		if d.PIN != "" {
			v.Set("pin", d.PIN)
		}
	}

	return fmt.Sprintf("%s://%s/%s?%s", scheme, host, label, v.Encode())
}

// Key converts the descriptor into a provisioning key, which can
// render itself as a QR code image.
func (d *Descriptor) Key() (*pqotp.Key, error) {
	switch d.Type {
	case otp.TypeTOTP, otp.TypeHOTP:
	default:
		return nil, fmt.Errorf("%w: %s has no standard provisioning key", otp.ErrUnsupportedType, d.Type)
	}

	return pqotp.NewKeyFromURL(d.String())
}
