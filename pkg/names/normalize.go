// Package names maps human-readable names onto the bech32 alphabet and derives
// the pad address that acts as the public claim target for a name.
//
// A normalized name only contains characters of the bech32 alphabet, minus the
// filler character used to pad witness programs. Because every character of a
// normalized name is already a valid 5-bit group, the name itself becomes the
// witness program of the pad address and can be read back from it.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Charset is the bech32 alphabet, indexed by 5-bit value.
const Charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// Filler pads short names to a legal program length. It never appears in a
// normalized name.
const Filler = 'q'

// substitutions maps characters outside the alphabet to their closest look-alike.
//
//nolint:gochecknoglobals // read-only lookup table
var substitutions = map[rune]rune{
	'b': '8',
	'i': 'l',
	'o': '0',
	'1': 'l',
	'q': 'g',
}

// Normalize folds an arbitrary input into the name alphabet.
// It never fails: unsupported characters are substituted or stripped.
func Normalize(input string) string {
	decomposed := norm.NFKD.String(input)

	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if sub, ok := substitutions[r]; ok {
			r = sub
		}
		if IsNameChar(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsNameChar reports whether r may appear in a normalized name.
func IsNameChar(r rune) bool {
	return r != Filler && r < unicode.MaxASCII && strings.ContainsRune(Charset, r)
}

// IsNormalized reports whether name is non-empty and consists only of name characters.
func IsNormalized(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !IsNameChar(r) {
			return false
		}
	}
	return true
}

// NameFromURL extracts the name label from a URL such as
// "https://www.alice.btc/about". The ".btc" top-level domain and anything
// after it is dropped, as is the scheme and any subdomain labels.
// The result is not normalized.
func NameFromURL(rawURL string) string {
	const tld = ".btc"

	u := rawURL
	if strings.HasSuffix(u, tld) {
		u = strings.TrimSuffix(u, tld)
	} else if end := strings.Index(u, tld); end > 0 {
		u = u[:end]
	}
	if scheme := strings.Index(u, "//"); scheme > -1 {
		u = u[scheme+2:]
	}
	if start := strings.LastIndex(u, "."); start > -1 {
		u = u[start+1:]
	}
	return u
}
