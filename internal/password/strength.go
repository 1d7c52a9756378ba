package password

import (
	"errors"
	"strings"
	"unicode"
)

// MinLength is the smallest accepted password length, exclusive.
const MinLength = 6

// Strength policy errors returned by Validate.
var (
	ErrTooShort       = errors.New("password must be longer than 6 characters")
	ErrAllLetters     = errors.New("password must not contain letters only")
	ErrAllDigits      = errors.New("password must not contain digits only")
	ErrAllLowercase   = errors.New("password must not be all lowercase")
	ErrOnlyWhitespace = errors.New("password must not be whitespace only")
)

// Validate applies the signup password policy. The rule set mirrors the
// directory's historical policy: more than six characters and a mix of
// character classes.
func Validate(password string) error {
	if len(password) <= MinLength {
		return ErrTooShort
	}
	if strings.TrimSpace(password) == "" {
		return ErrOnlyWhitespace
	}

	allLetters := true
	allDigits := true
	allLower := true
	for _, r := range password {
		if !unicode.IsLetter(r) {
			allLetters = false
		}
		if !unicode.IsDigit(r) {
			allDigits = false
		}
		if unicode.IsUpper(r) || unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			allLower = false
		}
	}
	switch {
	case allLetters:
		return ErrAllLetters
	case allDigits:
		return ErrAllDigits
	case allLower:
		return ErrAllLowercase
	}
	return nil
}
