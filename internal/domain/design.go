package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"unicode"
)

// Money is an amount in cents. Platform APIs want decimal strings and the
// ledger file wants plain numbers; both convert from here.
type Money int64

// Decimal renders the amount in the "24.99" form platform APIs expect.
func (m Money) Decimal() string {
	return fmt.Sprintf("%d.%02d", m/100, m%100)
}

// Float returns the amount in whole currency units for the ledger file.
func (m Money) Float() float64 {
	return float64(m) / 100
}

// Scale multiplies by factor and rounds to the nearest cent.
func (m Money) Scale(factor float64) Money {
	return Money(math.Round(float64(m) * factor))
}

// DesignAsset is one staged design image with everything derived from it.
// It is built once per run and never mutated afterwards.
type DesignAsset struct {
	Path        string
	Filename    string
	Category    string
	Theme       string
	Fingerprint string
	BasePrice   Money
	RetailPrice Money
}

// TitleCase upper-cases the first letter of every word, where a word starts
// after any non-letter. "8-bit pixel art" becomes "8-Bit Pixel Art".
func TitleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
		} else {
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

// FingerprintBytes returns the lowercase hex SHA-256 of content. Identity is
// content-only: renamed copies of the same bytes share a fingerprint.
func FingerprintBytes(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ParseDesignName extracts category and theme from the staging convention
// design_<category>_<theme words>_<timestamp>.<ext>, where the category is a
// single token (hyphenated keys like retro-gaming survive the underscore
// split). Files outside the convention fall back to category "custom" with
// the stem as theme.
func ParseDesignName(filename string) (category, theme string) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) >= 4 && parts[0] == "design" {
		return parts[1], strings.Join(parts[2:len(parts)-1], " ")
	}
	return "custom", strings.ReplaceAll(strings.TrimPrefix(stem, "design_"), "_", " ")
}
