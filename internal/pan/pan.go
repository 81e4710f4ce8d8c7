package pan

import (
	"strings"
	"unicode/utf8"
)

const cardholderNameMax = 26

func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LastN / MaskPAN are shared by the response parser and log statements.
func LastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// MaskPAN keeps the BIN and the last four digits. Terminals already send
// masked accounts ("************1234"); those come back unchanged in shape.
func MaskPAN(pan string) string {
	cleaned := NormalizePAN(pan)
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

// NormalizePAN strips spaces, tabs and dashes.
func NormalizePAN(s string) string {
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

// NormalizeCardholderName collapses whitespace, upper-cases and truncates to
// what fits on a card face / receipt line.
func NormalizeCardholderName(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ""
	}
	up := strings.ToUpper(strings.Join(strings.Fields(trimmed), " "))
	if len(up) <= cardholderNameMax {
		return up
	}
	// cut on a rune boundary so multi-byte names stay valid UTF-8
	n := 0
	for n < len(up) {
		_, size := utf8.DecodeRuneInString(up[n:])
		if n+size > cardholderNameMax {
			break
		}
		n += size
	}
	return up[:n]
}
