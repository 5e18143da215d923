package validation

import (
	"regexp"
	"strings"
	"unicode"
)

// isValidEmail: /^[^\s@]+@[^\s@]+\.[^\s@]+$/
var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Full name: letters, spaces, hyphens, apostrophes, dots.
var fullnameRe = regexp.MustCompile(`^[A-Za-z\s\-'.]+$`)

// Matric numbers are 9 digits (e.g. 190401023).
var matricRe = regexp.MustCompile(`^[0-9]{9}$`)

const (
	countryCode        = "234"
	nationalDigits     = 10
	MatricNumberDigits = 9
)

func IsValidEmail(email string) bool {
	return emailRe.MatchString(email)
}

// IsValidPassword enforces:
// - at least 8 characters
// - contains at least one letter
// - contains at least one number
// - contains at least one special character
func IsValidPassword(password string) bool {
	if len(password) < 8 {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return fullname != "" && fullnameRe.MatchString(fullname)
}

func IsValidMatricNumber(matric string) bool {
	return matricRe.MatchString(matric)
}

// NormalizePhone returns the number as +234XXXXXXXXXX. Accepted inputs, after stripping
// everything but digits: 10 national digits, 11 digits with a leading 0, or 13 digits with
// the 234 country code. ok is false for anything else.
func NormalizePhone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == nationalDigits+1 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	case len(digits) == nationalDigits+len(countryCode) && strings.HasPrefix(digits, countryCode):
		digits = digits[len(countryCode):]
	case len(digits) == nationalDigits:
	default:
		return "", false
	}
	if digits[0] == '0' {
		return "", false
	}
	return "+" + countryCode + digits, true
}

// TitleCase lower-cases s, collapses whitespace and capitalizes each word.
func TitleCase(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	var b strings.Builder
	capitalize := true
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !capitalize {
				b.WriteRune(' ')
				capitalize = true
			}
			continue
		}
		if capitalize {
			b.WriteRune(unicode.ToUpper(r))
			capitalize = false
		} else {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
