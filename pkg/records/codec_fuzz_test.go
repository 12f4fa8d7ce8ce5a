package records

import (
	"testing"

	"github.com/plebnames/go-plebnames/pkg/names"
)

// FuzzParse checks that Parse never panics and that accepted records have a
// normalized name and a non-empty key.
func FuzzParse(f *testing.F) {
	f.Add([]byte("alice.website=https://a.example"))
	f.Add([]byte("alice.owner="))
	f.Add([]byte("..=="))
	f.Add([]byte(""))
	f.Add([]byte{0xff, '.', 'k', '='})

	f.Fuzz(func(t *testing.T, payload []byte) {
		record, err := Parse(payload)
		if err != nil {
			return
		}
		if record.Name == "" || !names.IsNormalized(record.Name) {
			t.Errorf("Parse(%q) produced name %q", payload, record.Name)
		}
		if record.Key == "" {
			t.Errorf("Parse(%q) produced an empty key", payload)
		}
	})
}

// FuzzPayloadFromScript checks that extracted payloads re-encode to the same script.
func FuzzPayloadFromScript(f *testing.F) {
	f.Add([]byte{0x6a, 0x03, 'a', 'b', 'c'})
	f.Add([]byte{0x00, 0x6a, 0x01, 'x'})
	f.Add([]byte{0x6a})

	f.Fuzz(func(t *testing.T, raw []byte) {
		payload, err := PayloadFromScript(scriptOf(raw))
		if err != nil || len(payload) > MaxPayloadLength {
			return
		}
		if _, err := EncodeScript(payload); err != nil {
			t.Errorf("payload %x from %x does not re-encode: %v", payload, raw, err)
		}
	})
}
