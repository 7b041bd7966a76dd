package cardutil

import (
	"strings"
	"testing"
)

func TestGenerateNumberIsLuhnValid(t *testing.T) {
	for i := 0; i < 100; i++ {
		number, err := GenerateNumber("")
		if err != nil {
			t.Fatalf("GenerateNumber failed: %v", err)
		}
		if len(number) != 16 {
			t.Fatalf("expected 16 digits, got %d (%s)", len(number), number)
		}
		if !strings.HasPrefix(number, DefaultBIN) {
			t.Errorf("expected BIN prefix %s, got %s", DefaultBIN, number)
		}
		if !Valid(number) {
			t.Errorf("generated number fails Luhn check: %s", number)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		number string
		want   bool
	}{
		{"4532015112830366", true},
		{"4532015112830367", false},
		{"79927398713", true},
		{"79927398710", false},
		{"", false},
		{"4", false},
		{"4532a15112830366", false},
	}
	for _, tc := range tests {
		if got := Valid(tc.number); got != tc.want {
			t.Errorf("Valid(%q) = %v, want %v", tc.number, got, tc.want)
		}
	}
}

func TestMask(t *testing.T) {
	if got := Mask("4532015112830366"); got != "************0366" {
		t.Errorf("unexpected mask: %s", got)
	}
	if got := Mask("123"); got != "123" {
		t.Errorf("short numbers should pass through, got %s", got)
	}
}

func TestExpiryFormat(t *testing.T) {
	expiry := Expiry(4)
	if len(expiry) != 5 || expiry[2] != '/' {
		t.Fatalf("expected MM/YY, got %s", expiry)
	}
}
