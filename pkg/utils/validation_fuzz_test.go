package utils

import (
	"testing"
)

// FuzzIsWebURI tests IsWebURI with random inputs to ensure it never panics
// and only accepts values with an http(s) prefix.
func FuzzIsWebURI(f *testing.F) {
	f.Add("https://example.com")
	f.Add("http://example.com/path")
	f.Add("")
	f.Add("ftp://example.com")
	f.Add("https://")
	f.Add("https://[::1]/")

	f.Fuzz(func(t *testing.T, uri string) {
		if IsWebURI(uri) && len(uri) < len("http://x") {
			t.Errorf("IsWebURI returned true for short URI: %q", uri)
		}
	})
}

// FuzzIsNostrPublicKey ensures arbitrary input never panics the bech32 path.
func FuzzIsNostrPublicKey(f *testing.F) {
	f.Add("npub10elfcs4fr0l0r8af98jlmgdh9c8tcxjvz9qkw038js35mp4dma8qzvjptg")
	f.Add("npub1")
	f.Add("")

	f.Fuzz(func(t *testing.T, value string) {
		_ = IsNostrPublicKey(value)
	})
}
