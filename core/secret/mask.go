package secret

import "strings"

// Mask returns a log-safe representation of a credential. Short values are
// fully starred; longer values keep the first and last character so operators
// can tell configured keys apart without exposing them.
func Mask(s string) string {
	n := len(s)
	switch {
	case n == 0:
		return ""
	case n <= 6:
		return strings.Repeat("*", n)
	default:
		return s[:1] + strings.Repeat("*", n-2) + s[n-1:]
	}
}
