package auth

import (
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var (
	passwordSeparators = regexp.MustCompile(`[-/\s]`)
)

// BcryptHasher implements PasswordAuthenticator.
//
// Passwords are stored with their separators removed so date-of-birth style
// passwords ("2004-03-13", "13/03/2004") match whichever way they are typed.
type BcryptHasher struct {
	cost int
}

var _ PasswordAuthenticator = BcryptHasher{}

// NewBcryptHasher returns a hasher using cost, falling back to bcrypt.DefaultCost
// when cost is out of range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

// HashPassword will generate a password hash
func (h BcryptHasher) HashPassword(password string) (string, error) {
	if strings.TrimSpace(password) == "" {
		return "", ErrNoEmptyString
	}

	cleaned := NormalizePassword(password)
	if cleaned == "" {
		return "", ErrNoEmptyString
	}

	out, err := bcrypt.GenerateFromPassword([]byte(cleaned), h.cost)
	if err != nil {
		return "", internalError(err, "failed to hash password")
	}
	return string(out), nil
}

// ComparePasswordAndHash will validate the given cleartext password matches
// the hashed password, trying separator variations after the raw input.
func (h BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	for _, candidate := range passwordVariations(password) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate))
		if err == nil {
			return nil
		}
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return err
		}
	}
	return ErrMismatchedHashAndPassword
}

// NormalizePassword strips dashes, slashes and whitespace
func NormalizePassword(password string) string {
	return passwordSeparators.ReplaceAllString(password, "")
}

func passwordVariations(password string) []string {
	candidates := []string{
		password,
		NormalizePassword(password),
		strings.ReplaceAll(password, "/", "-"),
		strings.ReplaceAll(password, "-", "/"),
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// HashPassword hashes with the default cost
func HashPassword(password string) (string, error) {
	return NewBcryptHasher(bcrypt.DefaultCost).HashPassword(password)
}

// ComparePasswordAndHash compares using the default hasher
func ComparePasswordAndHash(password, hash string) error {
	return BcryptHasher{}.ComparePasswordAndHash(password, hash)
}
