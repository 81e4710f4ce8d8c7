package pan

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestMaskPAN(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"123", "***"},
		{"12345678", "****5678"},
		{"4212 3456 7890 1234", "421234******1234"},
		{"************1234", "************1234"},
	}
	for _, c := range cases {
		if got := MaskPAN(c.in); got != c.out {
			t.Fatalf("MaskPAN(%q) = %q want %q", c.in, got, c.out)
		}
	}
}

func TestLastN(t *testing.T) {
	if got := LastN("4111111111111111", 4); got != "1111" {
		t.Fatalf("LastN got %s", got)
	}
	if got := LastN("12", 4); got != "12" {
		t.Fatalf("LastN short got %s", got)
	}
}

func TestIsDigits(t *testing.T) {
	if !IsDigits("0123456789") || IsDigits("12a4") {
		t.Fatalf("IsDigits mismatch")
	}
}

func TestNormalizeCardholderName(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"   ", ""},
		{"john  doe", "JOHN DOE"},
		{"  Alice\tSmith  ", "ALICE SMITH"},
		{"very very very very very long name here", "VERY VERY VERY VERY VERY L"},
	}
	for _, c := range cases {
		if got := NormalizeCardholderName(c.in); got != c.out {
			t.Fatalf("NormalizeCardholderName(%q) = %q want %q", c.in, got, c.out)
		}
	}
}

func TestNormalizeCardholderName_MultiByteTruncation(t *testing.T) {
	got := NormalizeCardholderName("A" + strings.Repeat("É", 27))
	if !utf8.ValidString(got) {
		t.Fatalf("NormalizeCardholderName produced invalid UTF-8: %q", got)
	}
	// "A" plus twelve two-byte runes fills 25 of the 26 bytes
	if want := "A" + strings.Repeat("É", 12); got != want {
		t.Fatalf("NormalizeCardholderName got %q want %q", got, want)
	}
}
