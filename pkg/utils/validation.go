// Package utils provides validation helpers for the values carried by name
// records: website and link URLs, lightning addresses and nostr keys.
package utils

import (
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Compiled regex patterns for validation
var (
	// lightningAddressRegex follows the LUD-16 "user@domain" shape.
	lightningAddressRegex = regexp.MustCompile(`^[a-z0-9\-_.+]+@[a-z0-9\-]+(?:\.[a-z0-9\-]+)+$`)

	// hexKeyRegex matches a raw 32-byte nostr public key.
	hexKeyRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)
)

// nostrPublicKeyHRP is the NIP-19 prefix of a bech32 encoded public key.
const nostrPublicKeyHRP = "npub"

// IsWebURI checks if the provided URI is a link a browser can open.
//
// Supported schemes:
//   - http:// and https:// with a non-empty host
//
// Parameters:
//   - uri: The URI string to validate
//
// Returns:
//   - bool: true if the URI parses and uses a supported scheme, false otherwise
func IsWebURI(uri string) bool {
	if strings.TrimSpace(uri) == "" || strings.ContainsAny(uri, " \t\r\n") {
		return false
	}

	parsedURL, err := url.Parse(uri)
	if err != nil {
		return false
	}

	switch parsedURL.Scheme {
	case "http", "https":
	default:
		return false
	}

	return parsedURL.Hostname() != ""
}

// IsLightningAddress checks if the value looks like a LUD-16 lightning address
// (an internet identifier of the form "user@domain.tld"). Matching is case-insensitive.
func IsLightningAddress(value string) bool {
	if len(value) > 320 {
		return false
	}
	return lightningAddressRegex.MatchString(strings.ToLower(value))
}

// IsNostrPublicKey checks if the value is a nostr public key, either NIP-19
// bech32 ("npub1...") or 64 lowercase hex characters.
func IsNostrPublicKey(value string) bool {
	if hexKeyRegex.MatchString(value) {
		_, err := hex.DecodeString(value)
		return err == nil
	}

	hrp, data, err := bech32.Decode(value)
	if err != nil || hrp != nostrPublicKeyHRP {
		return false
	}

	key, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return false
	}
	return len(key) == 32
}

// IsASCII reports whether every byte of data is 7-bit ASCII.
func IsASCII(data []byte) bool {
	for _, b := range data {
		if b > 0x7f {
			return false
		}
	}
	return true
}

// IsASCIIString is IsASCII for strings.
func IsASCIIString(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
