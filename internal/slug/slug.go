// Package slug derives URL-safe product identifiers from names.
package slug

import (
	"fmt"
	"strings"
	"unicode"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// SuffixLength is the number of random characters appended to every generated slug.
	SuffixLength = 6
	// MaxLength matches the products.slug column.
	MaxLength = 255

	suffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// letters that have no canonical decomposition into a base letter plus marks.
var foldReplacer = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "ae", "œ", "oe", "Œ", "oe",
	"ø", "o", "Ø", "o", "đ", "d", "Đ", "d", "ł", "l", "Ł", "l", "þ", "th", "Þ", "th",
	"@", " at ",
)

// SuffixFunc returns a random suffix of the requested length.
type SuffixFunc func(length int) (string, error)

// NanoidSuffix draws the suffix from lowercase letters and digits.
func NanoidSuffix(length int) (string, error) {
	return gonanoid.Generate(suffixAlphabet, length)
}

// Generator builds "<transliterated-name>-<suffix>" slugs.
// It does not guarantee uniqueness.
type Generator struct {
	suffix SuffixFunc
}

// NewGenerator returns a Generator. A nil suffix uses NanoidSuffix.
func NewGenerator(suffix SuffixFunc) *Generator {
	if suffix == nil {
		suffix = NanoidSuffix
	}
	return &Generator{suffix: suffix}
}

// Generate returns a slug for name with a fresh random suffix.
func (g *Generator) Generate(name string) (string, error) {
	suffix, err := g.suffix(SuffixLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate slug suffix: %w", err)
	}

	base := Slugify(name)
	if base == "" {
		return suffix, nil
	}
	if maxBase := MaxLength - len(suffix) - 1; len(base) > maxBase {
		base = strings.TrimRight(base[:maxBase], "-")
	}
	return base + "-" + suffix, nil
}

// Slugify lowercases s, strips diacritics and joins the remaining ASCII
// letters and digits with single hyphens. Characters without an ASCII
// form are dropped.
func Slugify(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, foldReplacer.Replace(s))
	if err != nil {
		folded = s
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}
