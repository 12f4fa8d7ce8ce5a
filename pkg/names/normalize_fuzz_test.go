package names

import (
	"testing"
	"unicode/utf8"
)

// FuzzNormalize checks that Normalize is idempotent and only emits name characters.
func FuzzNormalize(f *testing.F) {
	seeds := []string{"alice", "Bob", "q", "José", "", "1234567890", "a.b=c", "\xff\xfe"}
	for _, seed := range seeds {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		once := Normalize(input)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent: %q -> %q -> %q", input, once, twice)
		}
		if !utf8.ValidString(once) {
			t.Fatalf("Normalize produced invalid UTF-8 for %q", input)
		}
		for _, r := range once {
			if !IsNameChar(r) {
				t.Fatalf("Normalize(%q) = %q contains %q", input, once, r)
			}
		}
	})
}

// FuzzPadAddress checks that every derivable name survives the round trip.
func FuzzPadAddress(f *testing.F) {
	f.Add("alice")
	f.Add("satoshi nakamoto")
	f.Add("a-very-long-name-that-needs-the-thirty-two-byte-program")

	f.Fuzz(func(t *testing.T, input string) {
		name := Normalize(input)
		address, err := PadAddress(name, "")
		if err != nil {
			return
		}
		decoded, err := NameFromPadAddress(address)
		if err != nil {
			t.Fatalf("NameFromPadAddress(%q) failed: %v", address, err)
		}
		if decoded != name {
			t.Fatalf("round trip mismatch: %q -> %q -> %q", name, address, decoded)
		}
	})
}
