package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"hash"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultDigits    = 6             // Standard 6-digit codes
	DefaultPeriod    = 30            // 30-second time step (RFC 6238)
	DefaultAlgorithm = AlgorithmSHA1 // RFC 6238 default HMAC
	DefaultSkew      = 1             // Accepted steps on each side of the current one

	// SecretSize is the raw secret length in bytes (160 bits, RFC 4226 recommendation).
	SecretSize = 20
)

// Algorithm identifies the HMAC hash function used for code derivation.
type Algorithm string

const (
	AlgorithmSHA1   Algorithm = "SHA1"
	AlgorithmSHA256 Algorithm = "SHA256"
	AlgorithmSHA512 Algorithm = "SHA512"
)

// Valid reports whether the algorithm is one authenticator apps understand.
func (a Algorithm) Valid() bool {
	switch a {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512:
		return true
	}
	return false
}

func (a Algorithm) hash() func() hash.Hash {
	switch a {
	case AlgorithmSHA256:
		return sha256.New
	case AlgorithmSHA512:
		return sha512.New
	default:
		return sha1.New
	}
}

// ValidateSecretKeyRegex matches Base32 secrets: A-Z, 2-7 and optional padding.
var ValidateSecretKeyRegex = regexp.MustCompile("^[A-Z2-7]+=*$")

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Params describes a TOTP credential and how it is presented to authenticator apps.
type Params struct {
	Secret      string    // Base32 secret (required)
	AccountName string    // Label shown in the authenticator app, usually the email
	Issuer      string    // Service name shown in the authenticator app
	Algorithm   Algorithm // Defaults to SHA1
	Digits      int       // Defaults to 6
	Period      int       // Seconds per step, defaults to 30
}

// WithDefaults returns a copy with RFC 6238 defaults applied to zero-valued fields.
func (p Params) WithDefaults() Params {
	if p.Algorithm == "" {
		p.Algorithm = DefaultAlgorithm
	}
	if p.Digits == 0 {
		p.Digits = DefaultDigits
	}
	if p.Period == 0 {
		p.Period = DefaultPeriod
	}
	return p
}

// Validate checks the fields needed to derive codes.
func (p Params) Validate() error {
	if p.Secret == "" {
		return ErrMissingSecret
	}
	if !ValidateSecretKeyRegex.MatchString(NormalizeSecret(p.Secret)) {
		return ErrInvalidSecret
	}
	if p.Algorithm != "" && !p.Algorithm.Valid() {
		return ErrUnsupportedAlgorithm
	}
	if p.Digits != 0 && (p.Digits < 6 || p.Digits > 8) {
		return ErrInvalidDigits
	}
	if p.Period < 0 {
		return ErrInvalidPeriod
	}
	return nil
}

// GenerateSecretKey returns a new random secret encoded as unpadded Base32.
func GenerateSecretKey() (string, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", errors.Join(ErrFailedToGenerateSecretKey, err)
	}
	return secretEncoding.EncodeToString(secret), nil
}

// NormalizeSecret upper-cases the secret and strips whitespace and padding,
// so secrets typed by hand in groups still decode.
func NormalizeSecret(secret string) string {
	secret = strings.ToUpper(secret)
	secret = strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '-':
			return -1
		}
		return r
	}, secret)
	return strings.TrimRight(secret, "=")
}

// FormatSecret splits the secret into blocks of four for manual entry.
func FormatSecret(secret string) string {
	secret = NormalizeSecret(secret)
	var b strings.Builder
	for i, r := range secret {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ProvisioningURI builds the otpauth:// URI consumed by authenticator apps.
// The query keeps the secret, issuer, algorithm, digits, period order that
// scanners are tested against.
func ProvisioningURI(p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if p.AccountName == "" {
		return "", ErrMissingAccountName
	}
	if p.Issuer == "" {
		return "", ErrMissingIssuer
	}
	// The label is "issuer:account"; another colon makes it ambiguous.
	if strings.Contains(p.Issuer, ":") || strings.Contains(p.AccountName, ":") {
		return "", ErrInvalidLabel
	}
	p = p.WithDefaults()

	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(url.PathEscape(p.Issuer))
	b.WriteByte(':')
	b.WriteString(url.PathEscape(p.AccountName))
	b.WriteString("?secret=")
	b.WriteString(NormalizeSecret(p.Secret))
	b.WriteString("&issuer=")
	b.WriteString(queryEscape(p.Issuer))
	b.WriteString("&algorithm=")
	b.WriteString(string(p.Algorithm))
	b.WriteString("&digits=")
	b.WriteString(strconv.Itoa(p.Digits))
	b.WriteString("&period=")
	b.WriteString(strconv.Itoa(p.Period))
	return b.String(), nil
}

// Some scanners decode '+' literally, so spaces are sent as %20.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// TimeStep returns the RFC 6238 counter for t.
func TimeStep(t time.Time, period int) int64 {
	if period <= 0 {
		period = DefaultPeriod
	}
	return t.Unix() / int64(period)
}

// ComputeCode derives the code for a single time step.
func ComputeCode(secret string, step int64, digits int, alg Algorithm) (string, error) {
	p := Params{Secret: secret, Digits: digits, Algorithm: alg}
	if err := p.Validate(); err != nil {
		return "", err
	}
	p = p.WithDefaults()

	key, err := decodeSecret(p.Secret)
	if err != nil {
		return "", err
	}
	return formatCode(GenerateHOTP(key, step, p.Digits, p.Algorithm), p.Digits), nil
}

// GenerateCode returns the code valid at t.
func GenerateCode(p Params, t time.Time) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	p = p.WithDefaults()
	return ComputeCode(p.Secret, TimeStep(t, p.Period), p.Digits, p.Algorithm)
}

// GenerateHOTP implements the RFC 4226 HMAC-based one-time password.
func GenerateHOTP(key []byte, counter int64, digits int, alg Algorithm) int {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(alg.hash(), key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation: low nibble of the last byte selects a 4-byte window.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for range digits {
		mod *= 10
	}
	return int(code % mod)
}

// Match checks code against the steps around now and returns the step that
// matched. Malformed input, including surrounding whitespace, is rejected
// before any HMAC is computed.
func Match(p Params, code string, now time.Time) (int64, bool, error) {
	if err := p.Validate(); err != nil {
		return 0, false, err
	}
	p = p.WithDefaults()

	if !isNumeric(code, p.Digits) {
		return 0, false, ErrMalformedCode
	}

	key, err := decodeSecret(p.Secret)
	if err != nil {
		return 0, false, err
	}

	current := TimeStep(now, p.Period)
	var (
		matched int64
		found   int
	)
	// Every candidate is computed so timing does not reveal the matching step.
	for i := -DefaultSkew; i <= DefaultSkew; i++ {
		step := current + int64(i)
		candidate := formatCode(GenerateHOTP(key, step, p.Digits, p.Algorithm), p.Digits)
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 && found == 0 {
			matched = step
			found = 1
		}
	}
	return matched, found == 1, nil
}

// Verify reports whether code is valid at now within the skew window.
func Verify(p Params, code string, now time.Time) (bool, error) {
	_, ok, err := Match(p, code, now)
	return ok, err
}

func decodeSecret(secret string) ([]byte, error) {
	key, err := secretEncoding.DecodeString(NormalizeSecret(secret))
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return key, nil
}

func formatCode(code, digits int) string {
	s := strconv.Itoa(code)
	if len(s) < digits {
		s = strings.Repeat("0", digits-len(s)) + s
	}
	return s
}

func isNumeric(code string, digits int) bool {
	if len(code) != digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
