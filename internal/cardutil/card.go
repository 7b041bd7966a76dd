package cardutil

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

// DefaultBIN is the issuer identification prefix for generated cards.
const DefaultBIN = "400000"

// GenerateNumber produces a 16-digit, Luhn-valid card number under the given
// BIN. The body is drawn from crypto/rand; the final digit is the computed
// check digit.
func GenerateNumber(bin string) (string, error) {
	if bin == "" {
		bin = DefaultBIN
	}
	number := bin
	for len(number) < 15 {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate card number: %w", err)
		}
		number += d.String()
	}
	return number + strconv.Itoa(checkDigit(number)), nil
}

// Valid reports whether the number passes the Luhn check.
func Valid(number string) bool {
	if len(number) < 2 {
		return false
	}
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		c := number[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// Mask keeps only the last four digits, the form safe for API responses and
// logs. Full card numbers never leave the storage layer otherwise.
func Mask(number string) string {
	if len(number) <= 4 {
		return number
	}
	masked := make([]byte, len(number))
	for i := range masked {
		masked[i] = '*'
	}
	copy(masked[len(masked)-4:], number[len(number)-4:])
	return string(masked)
}

// Expiry returns an MM/YY expiry the given number of years out.
func Expiry(years int) string {
	t := time.Now().AddDate(years, 0, 0)
	return fmt.Sprintf("%02d/%02d", int(t.Month()), t.Year()%100)
}

// checkDigit computes the Luhn check digit for a partial number.
func checkDigit(partial string) int {
	sum := 0
	double := true
	for i := len(partial) - 1; i >= 0; i-- {
		d := int(partial[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return (10 - sum%10) % 10
}
