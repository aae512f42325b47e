package service

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.]{2,20}$`)

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername expects an already normalized username.
func ValidateUsername(username string) (bool, string) {
	if !usernamePattern.MatchString(username) {
		return false, "Username must be 2-20 characters long and contain only letters, digits, underscores and dots."
	}
	return true, ""
}

// NormalizeEmail parses the address and returns its lowercased form.
func NormalizeEmail(email string) (string, bool) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 320 {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", false
	}
	at := strings.LastIndexByte(addr.Address, '@')
	if at <= 0 || !strings.Contains(addr.Address[at+1:], ".") {
		return "", false
	}
	return strings.ToLower(addr.Address), true
}

// NormalizeName validates an optional first or last name and capitalizes it.
func NormalizeName(field, name string) (string, bool, string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", true, ""
	}
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 30 {
		return "", false, field + " must be 2-30 characters long."
	}
	for _, r := range name {
		if !unicode.IsLetter(r) {
			return "", false, field + " must contain only letters."
		}
	}
	lower := strings.ToLower(name)
	first, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(first)) + lower[size:], true, ""
}

// bcrypt rejects longer input
const maxSecretBytes = 72

func ValidatePassword(password string) (bool, string) {
	n := utf8.RuneCountInString(password)
	if n < 8 || n > 64 {
		return false, "Password must be 8-64 characters long."
	}
	if len(password) > maxSecretBytes {
		return false, "Password must not exceed 72 bytes."
	}

	var hasLower, hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsSpace(r):
			return false, "Password must not contain whitespace."
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLower || !hasUpper || !hasDigit {
		return false, "Password must contain at least one lowercase letter, one uppercase letter and one digit."
	}
	return true, ""
}

func ValidateAccessCode(code string) (bool, string) {
	n := utf8.RuneCountInString(code)
	if n < 4 || n > 64 {
		return false, "Access code must be 4-64 characters long."
	}
	if len(code) > maxSecretBytes {
		return false, "Access code must not exceed 72 bytes."
	}
	if strings.IndexFunc(code, unicode.IsSpace) >= 0 {
		return false, "Access code must not contain whitespace."
	}
	return true, ""
}

func ValidateExpiration(exp *time.Time, now time.Time) (bool, string) {
	if exp != nil && !exp.After(now) {
		return false, "Expiration date must be in the future."
	}
	return true, ""
}
