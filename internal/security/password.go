package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/crypto/argon2"

	"webrecorder/api/internal/apperr"
)

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var defaultParams = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

const (
	MsgPasswordMismatch = "Passwords do not match!"
	MsgWeakPassword     = "Please choose a different password"

	minPasswordLen = 8
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][\w-]{2,30}$`)

// PasswordVault hashes, verifies and vets passwords. It holds no state
// beyond its argon2 parameters.
type PasswordVault struct {
	params Argon2Params
}

func NewPasswordVault() *PasswordVault {
	return &PasswordVault{params: defaultParams}
}

func NewPasswordVaultWithParams(params Argon2Params) *PasswordVault {
	return &PasswordVault{params: params}
}

func (v *PasswordVault) Hash(password string) (string, error) {
	salt := make([]byte, v.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, v.params.Time, v.params.Memory, v.params.Threads, v.params.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		v.params.Memory,
		v.params.Time,
		v.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// Verify reports whether password matches encodedHash. A malformed hash is an
// error, a mismatch is not.
func (v *PasswordVault) Verify(password string, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("parse hash: unsupported format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, fmt.Errorf("parse hash version: %w", err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("parse hash params: %w", err)
	}
	if threads == 0 || threads > 255 {
		return false, fmt.Errorf("parse hash params: invalid parallelism %d", threads)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	if len(hash) == 0 {
		return false, fmt.Errorf("decode hash: empty key")
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(len(hash)))

	return subtle.ConstantTimeCompare(hash, computed) == 1, nil
}

// CheckPolicy requires at least eight characters with a lowercase letter, an
// uppercase letter, and a digit or symbol.
func (v *PasswordVault) CheckPolicy(password string) error {
	if len([]rune(password)) < minPasswordLen {
		return apperr.Validation(MsgWeakPassword)
	}

	var lower, upper, other bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r), !unicode.IsLetter(r):
			other = true
		}
	}
	if !lower || !upper || !other {
		return apperr.Validation(MsgWeakPassword)
	}
	return nil
}

func (v *PasswordVault) CheckMatch(password, confirm string) error {
	if subtle.ConstantTimeCompare([]byte(password), []byte(confirm)) != 1 {
		return apperr.Validation(MsgPasswordMismatch)
	}
	return nil
}

func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}
