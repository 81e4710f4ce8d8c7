package pax

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

// Fixed transport tokens for the control bytes.
const (
	HexSTX = "02"
	HexFS  = "1c"
	HexETX = "03"
	HexUS  = "1f"
)

func controlHex(b byte) string {
	switch b {
	case STX:
		return HexSTX
	case FS:
		return HexFS
	case ETX:
		return HexETX
	case US:
		return HexUS
	}
	return HexToken([]byte{b})
}

// HexToken is the one byte-to-hex helper used for control bytes and values
// alike: two lowercase digits per byte, no separators.
func HexToken(b []byte) string {
	return hex.EncodeToString(b)
}

// ParseHexTokens reverses a space-joined sequence of HexToken outputs.
func ParseHexTokens(s string) ([]byte, error) {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if len(clean)%2 != 0 {
		return nil, fmt.Errorf("%w: odd number of hex digits (%d)", ErrMalformedHex, len(clean))
	}
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHex, err)
	}
	return b, nil
}

// EnvelopeFromHex turns the space-joined hex frame into the Base64 string
// placed in the request query.
func EnvelopeFromHex(s string) (string, error) {
	b, err := ParseHexTokens(s)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func DecodeEnvelope(envelope string) ([]byte, error) {
	s := strings.TrimSpace(envelope)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some firmware drops the padding
		if b2, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err2 == nil {
			return b2, nil
		}
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	return b, nil
}

// HexDump renders bytes as dash-separated hex pairs for logs.
func HexDump(b []byte) string {
	hexDigits := hex.EncodeToString(b)
	var builder strings.Builder
	for i, r := range hexDigits {
		if i > 0 && i%2 == 0 {
			builder.WriteString("-")
		}
		builder.WriteRune(r)
	}
	return builder.String()
}
