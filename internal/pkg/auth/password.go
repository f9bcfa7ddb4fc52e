// internal/pkg/auth/password.go
package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/your-org/cinema-backend/internal/config"
	"golang.org/x/crypto/bcrypt"
)

var (
	sequentialLetters = regexp.MustCompile(`(?i)(abc|bcd|cde|def|efg|fgh|ghi|hij|ijk|jkl|klm|lmn|mno|nop|opq|pqr|qrs|rst|stu|tuv|uvw|vwx|wxy|xyz)`)
	sequentialDigits  = regexp.MustCompile(`(012|123|234|345|456|567|678|789)`)

	commonPasswords = []string{
		"password", "qwerty", "letmein", "welcome", "admin", "iloveyou", "cinema", "movie",
	}
)

// PasswordManager handles password operations
type PasswordManager struct {
	config *config.Config
}

// NewPasswordManager creates a new password manager
func NewPasswordManager(cfg *config.Config) *PasswordManager {
	return &PasswordManager{
		config: cfg,
	}
}

// HashPassword validates strength then hashes with the configured bcrypt cost
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if err := p.ValidatePassword(password); err != nil {
		return "", err
	}

	cost := p.config.Security.BcryptCost
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against its hash
func (p *PasswordManager) VerifyPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword validates password strength
func (p *PasswordManager) ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must be no more than 128 characters long")
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	switch {
	case !hasUpper:
		return fmt.Errorf("password must contain at least one uppercase letter")
	case !hasLower:
		return fmt.Errorf("password must contain at least one lowercase letter")
	case !hasNumber:
		return fmt.Errorf("password must contain at least one number")
	case !hasSpecial:
		return fmt.Errorf("password must contain at least one special character")
	}

	return checkCommonPatterns(password)
}

func checkCommonPatterns(password string) error {
	if sequentialLetters.MatchString(password) {
		return fmt.Errorf("password cannot contain sequential letters")
	}
	if sequentialDigits.MatchString(password) {
		return fmt.Errorf("password cannot contain sequential numbers")
	}
	if hasRun(password, 3) {
		return fmt.Errorf("password cannot contain more than 2 repeating characters")
	}

	lower := strings.ToLower(password)
	for _, common := range commonPasswords {
		if strings.Contains(lower, common) {
			return fmt.Errorf("password is too common and easily guessable")
		}
	}
	return nil
}

// hasRun reports whether the same rune appears n times in a row.
func hasRun(s string, n int) bool {
	var prev rune
	count := 0
	for i, r := range s {
		if i > 0 && r == prev {
			count++
		} else {
			count = 1
		}
		if count >= n {
			return true
		}
		prev = r
	}
	return false
}
