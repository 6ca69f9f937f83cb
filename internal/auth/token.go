// Package auth hashes and verifies the bearer tokens accepted by the
// reference session store, using argon2id.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/term"
)

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultParams is tuned for a token checked once per process, then cached.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
}

const (
	saltLength  = 16
	tokenLength = 32
)

var (
	// ErrEmptyToken is returned when an empty token is hashed or entered.
	ErrEmptyToken = errors.New("token cannot be empty")
	// ErrTokenMismatch is returned when the confirmation differs.
	ErrTokenMismatch = errors.New("tokens do not match")
)

// HashToken creates an argon2id hash of token in the PHC string format
// $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<hash>.
func HashToken(token string, p Params) (string, error) {
	if token == "" {
		return "", ErrEmptyToken
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(token), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

// VerifyToken reports whether token matches encoded. A malformed hash is
// an error, a wrong token is not.
func VerifyToken(token, encoded string) (bool, error) {
	p, salt, want, err := parseHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(token), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// CheckHash validates the format of an encoded hash without hashing.
func CheckHash(encoded string) error {
	_, _, _, err := parseHash(encoded)
	return err
}

func parseHash(encoded string) (Params, []byte, []byte, error) {
	var p Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return p, nil, nil, fmt.Errorf("invalid hash format: expected 6 parts, got %d", len(parts))
	}
	if parts[1] != "argon2id" {
		return p, nil, nil, fmt.Errorf("invalid hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return p, nil, nil, fmt.Errorf("invalid version format: %w", err)
	}
	if version != argon2.Version {
		return p, nil, nil, fmt.Errorf("unsupported argon2 version: %d", version)
	}

	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, fmt.Errorf("invalid params format: %w", err)
	}
	if p.Time == 0 || p.Threads == 0 {
		return p, nil, nil, errors.New("invalid params: time and threads must be positive")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("invalid salt encoding: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return p, nil, nil, fmt.Errorf("invalid hash encoding: %w", err)
	}
	if len(key) == 0 {
		return p, nil, nil, errors.New("invalid hash: empty key")
	}
	p.KeyLen = uint32(len(key))

	return p, salt, key, nil
}

// GenerateToken returns a random URL-safe token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// readSecret reads a line without echo from the terminal on fd. Tests
// replace it.
var readSecret = term.ReadPassword

// PromptToken writes prompt to out and reads a token without echo from
// the terminal on fd.
func PromptToken(fd int, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	b, err := readSecret(fd)
	fmt.Fprintln(out) // hidden input leaves the cursor on the prompt line
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

// PromptAndConfirmToken prompts twice and returns the token if both
// entries match.
func PromptAndConfirmToken(fd int, out io.Writer) (string, error) {
	token, err := PromptToken(fd, out, "Token: ")
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", ErrEmptyToken
	}

	confirm, err := PromptToken(fd, out, "Confirm token: ")
	if err != nil {
		return "", err
	}
	if token != confirm {
		return "", ErrTokenMismatch
	}
	return token, nil
}
