package totp

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// DefaultBackupCodeCount is the size of a freshly issued set.
	DefaultBackupCodeCount = 8
	// BackupCodeLength is the number of symbols per code, excluding the separator.
	BackupCodeLength = 10

	saltSize = 16
)

// backupCodeAlphabet leaves out 0, O, 1 and I so codes survive being read aloud or copied by hand.
const backupCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// HashParams are the argon2id cost parameters for backup code hashes.
type HashParams struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultHashParams follows the OWASP minimum for argon2id.
var DefaultHashParams = HashParams{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
	KeyLen:  32,
}

// GenerateBackupCodes returns count random codes formatted as XXXXX-XXXXX.
func GenerateBackupCodes(count int) ([]string, error) {
	if count < 1 {
		return nil, ErrInvalidRecoveryCodeCount
	}

	alphabetLen := big.NewInt(int64(len(backupCodeAlphabet)))
	codes := make([]string, count)
	for i := range count {
		raw := make([]byte, BackupCodeLength)
		for j := range raw {
			n, err := rand.Int(rand.Reader, alphabetLen)
			if err != nil {
				return nil, errors.Join(ErrFailedToGenerateRecoveryCode, err)
			}
			raw[j] = backupCodeAlphabet[n.Int64()]
		}
		codes[i] = FormatBackupCode(string(raw))
	}
	return codes, nil
}

// FormatBackupCode inserts the display separator in the middle of a code.
func FormatBackupCode(code string) string {
	code = NormalizeBackupCode(code)
	if len(code) != BackupCodeLength {
		return code
	}
	half := BackupCodeLength / 2
	return code[:half] + "-" + code[half:]
}

// NormalizeBackupCode upper-cases the input and drops separators and spaces.
func NormalizeBackupCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			return -1
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		}
		return r
	}, code)
}

// ValidBackupCodeFormat reports whether code could have been issued by GenerateBackupCodes.
func ValidBackupCodeFormat(code string) bool {
	code = NormalizeBackupCode(code)
	if len(code) != BackupCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(backupCodeAlphabet, rune(code[i])) {
			return false
		}
	}
	return true
}

// NewSalt returns a random base64 salt for HashBackupCode.
func NewSalt() (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", errors.Join(ErrFailedToHashRecoveryCode, err)
	}
	return base64.RawStdEncoding.EncodeToString(salt), nil
}

// HashBackupCode derives an argon2id hash of the normalized code.
// The result embeds the cost parameters so older hashes stay verifiable
// after the defaults change; the salt is kept separately.
func HashBackupCode(code, salt string, params HashParams) (string, error) {
	rawSalt, err := base64.RawStdEncoding.DecodeString(salt)
	if err != nil {
		return "", errors.Join(ErrFailedToHashRecoveryCode, err)
	}
	sum := argon2.IDKey([]byte(NormalizeBackupCode(code)), rawSalt, params.Time, params.Memory, params.Threads, params.KeyLen)
	return fmt.Sprintf("argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		argon2.Version, params.Memory, params.Time, params.Threads,
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// VerifyBackupCode recomputes the hash with the stored salt and parameters
// and compares in constant time.
func VerifyBackupCode(code, salt, encodedHash string) bool {
	var (
		version int
		params  HashParams
	)
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 4 || parts[0] != "argon2id" {
		return false
	}
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return false
	}
	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &params.Memory, &params.Time, &params.Threads); err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return false
	}
	params.KeyLen = uint32(len(want))

	got, err := HashBackupCode(code, salt, params)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(encodedHash)) == 1
}
