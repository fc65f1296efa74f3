package password

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

var trivialPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {},
	"123456789": {}, "qwerty123": {}, "11111111": {}, "iloveyou": {},
}

// Validate checks password policy. Lengths count runes.
func (c Config) Validate(password string) error {
	n := utf8.RuneCountInString(password)
	if n < c.Policy.MinLength {
		return ErrPasswordTooShort
	}
	if n > c.Policy.MaxLength {
		return ErrPasswordTooLong
	}
	if c.Policy.RejectVeryWeak && veryWeak(password) {
		return ErrWeakPassword
	}
	return nil
}

func veryWeak(pw string) bool {
	s := strings.TrimSpace(pw)
	if s == "" {
		return true
	}
	if _, ok := trivialPasswords[strings.ToLower(s)]; ok {
		return true
	}

	distinct := make(map[rune]struct{}, 4)
	digits := true
	for _, r := range s {
		distinct[r] = struct{}{}
		if !unicode.IsDigit(r) {
			digits = false
		}
	}
	if len(distinct) == 1 {
		return true
	}
	return digits && utf8.RuneCountInString(s) < 12
}
