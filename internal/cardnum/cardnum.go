package cardnum

import (
	"fmt"
	"strings"
)

// MaxLen is the longest card number Fidelis issues.
const MaxLen = 19

// Normalize strips spaces, tabs and dashes, returning the bare digits.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-':
			return -1
		default:
			return r
		}
	}, s)
}

// Validate checks a normalised card number is numeric and of plausible length.
// Fidelis numbers are not guaranteed to carry a Luhn check digit.
func Validate(number string) error {
	if number == "" {
		return fmt.Errorf("card number is required")
	}
	if !IsDigits(number) {
		return fmt.Errorf("card number must contain digits only")
	}
	if len(number) > MaxLen {
		return fmt.Errorf("card number must be at most %d digits (got %d)", MaxLen, len(number))
	}
	return nil
}

func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func LastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Mask keeps the first six and last four digits of long numbers, only the
// last four of short ones. Use it for anything that reaches a log line.
func Mask(number string) string {
	cleaned := Normalize(number)
	n := len(cleaned)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	if n < 10 {
		return strings.Repeat("*", n-4) + cleaned[n-4:]
	}
	return cleaned[:6] + strings.Repeat("*", n-10) + cleaned[n-4:]
}
