package records

import (
	"strings"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plebnames/go-plebnames/pkg/types"
)

// Test Encode

func TestEncode_Basic(t *testing.T) {
	payload, err := Encode("alice", types.KeyWebsite, "https://alice.example")
	require.NoError(t, err)
	assert.Equal(t, "alice.website=https://alice.example", string(payload))
}

func TestEncode_EmptyValue(t *testing.T) {
	payload, err := Encode("alice", types.KeyNostr, "")
	require.NoError(t, err)
	assert.Equal(t, "alice.nostr=", string(payload))
}

func TestEncode_InvalidParts(t *testing.T) {
	tests := []struct {
		name  string
		rname string
		key   types.FieldKey
		value string
	}{
		{"empty name", "", types.KeyWebsite, "x"},
		{"dot in name", "al.ice", types.KeyWebsite, "x"},
		{"empty key", "alice", "", "x"},
		{"equals in key", "alice", "a=b", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Encode(tt.rname, tt.key, tt.value)
			require.Error(t, err)
		})
	}
}

func TestEncode_NonASCII(t *testing.T) {
	_, err := Encode("alice", types.KeyWebsite, "https://café.example")
	require.ErrorIs(t, err, ErrNonASCII)
}

func TestEncode_MaxLength(t *testing.T) {
	prefix := "alice.linkTo="
	value := strings.Repeat("x", MaxPayloadLength-len(prefix))

	payload, err := Encode("alice", types.KeyLinkTo, value)
	require.NoError(t, err)
	assert.Len(t, payload, MaxPayloadLength)
}

func TestEncode_TooLarge(t *testing.T) {
	prefix := "alice.linkTo="
	value := strings.Repeat("x", MaxPayloadLength-len(prefix)+1)

	payload, err := Encode("alice", types.KeyLinkTo, value)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Nil(t, payload)

	var lengthErr *PayloadLengthError
	require.ErrorAs(t, err, &lengthErr)
	assert.Equal(t, MaxPayloadLength+1, lengthErr.Length)
}

// Test Parse and Decode

func TestParse_SplitsOnFirstSeparators(t *testing.T) {
	record, err := Parse([]byte("alice.linkTo=https://a.example/?x=1.2"))
	require.NoError(t, err)
	assert.Equal(t, "allce", record.Name)
	assert.Equal(t, types.KeyLinkTo, record.Key)
	assert.Equal(t, "https://a.example/?x=1.2", record.Value)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", nil},
		{"no dot", []byte("alicewebsite=x")},
		{"no equals", []byte("alice.website")},
		{"empty key", []byte("alice.=x")},
		{"empty name", []byte(".website=x")},
		{"name normalizes to nothing", []byte("!!!.website=x")},
		{"non ascii", []byte("alice.website=caf\xc3\xa9")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := Parse(tt.payload)
			require.ErrorIs(t, err, ErrMalformed)
			assert.Nil(t, record)

			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	tests := []struct {
		key   types.FieldKey
		value string
	}{
		{types.KeyOwner, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"},
		{types.KeyWebsite, "https://example.com"},
		{types.KeyLightningAddress, "alice@getalby.com"},
		{types.KeyNostr, "npub10elfcs4fr0l0r8af98jlmgdh9c8tcxjvz9qkw038js35mp4dma8qzvjptg"},
		{"color", "a=b.c"},
		{types.KeyLinkTo, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.key), func(t *testing.T) {
			payload, err := Encode("mike", tt.key, tt.value)
			require.NoError(t, err)

			record, err := Decode(payload, "mike")
			require.NoError(t, err)
			assert.Equal(t, "mlke", record.Name)
			assert.Equal(t, tt.key, record.Key)
			assert.Equal(t, tt.value, record.Value)
		})
	}
}

func TestDecode_Unrelated(t *testing.T) {
	record, err := Decode([]byte("bob.website=x"), "alice")
	require.ErrorIs(t, err, ErrUnrelated)
	assert.Nil(t, record)
}

func TestDecode_MatchesNormalizedName(t *testing.T) {
	record, err := Decode([]byte("ALICE.website=x"), "alice")
	require.NoError(t, err)
	assert.Equal(t, "x", record.Value)
}

func TestDecode_MalformedIsNotUnrelated(t *testing.T) {
	_, err := Decode([]byte("garbage"), "alice")
	require.ErrorIs(t, err, ErrMalformed)
	assert.NotErrorIs(t, err, ErrUnrelated)
}

// Test scripts

func TestEncodeScript_Bytes(t *testing.T) {
	payload := []byte("alice.nostr=xyz")
	s, err := EncodeScript(payload)
	require.NoError(t, err)

	expected := append([]byte{0x6a, byte(len(payload))}, payload...)
	assert.Equal(t, expected, []byte(*s))
}

func TestEncodeScript_MaxPush(t *testing.T) {
	payload := []byte(strings.Repeat("a", MaxPayloadLength))
	s, err := EncodeScript(payload)
	require.NoError(t, err)
	assert.Equal(t, byte(0x4b), []byte(*s)[1])
	assert.Len(t, []byte(*s), MaxPayloadLength+2)
}

func TestEncodeScript_Invalid(t *testing.T) {
	_, err := EncodeScript(nil)
	require.Error(t, err)

	_, err = EncodeScript([]byte(strings.Repeat("a", MaxPayloadLength+1)))
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestPayloadFromScript(t *testing.T) {
	payload := []byte("alice.website=x")

	s, err := EncodeScript(payload)
	require.NoError(t, err)
	got, err := PayloadFromScript(s)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	safe := script.Script(append([]byte{0x00}, []byte(*s)...))
	got, err = PayloadFromScript(&safe)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	pushData1 := script.Script(append([]byte{0x6a, 0x4c, byte(len(payload))}, payload...))
	got, err = PayloadFromScript(&pushData1)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPayloadFromScript_NotDataCarrier(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"empty", []byte{}},
		{"p2pkh", []byte{0x76, 0xa9, 0x14}},
		{"bare op_return", []byte{0x6a}},
		{"empty push", []byte{0x6a, 0x00}},
		{"short push", []byte{0x6a, 0x05, 'a', 'b'}},
		{"trailing data", []byte{0x6a, 0x01, 'a', 0x01, 'b'}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := script.Script(tt.raw)
			_, err := PayloadFromScript(&s)
			require.ErrorIs(t, err, ErrNotDataCarrier)
		})
	}

	_, err := PayloadFromScript(nil)
	require.ErrorIs(t, err, ErrNotDataCarrier)
}

func TestEncodeRecordScript(t *testing.T) {
	s, err := EncodeRecordScript("alice", types.KeyOwner, "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	require.NoError(t, err)

	payload, err := PayloadFromScript(s)
	require.NoError(t, err)
	assert.Equal(t, "alice.owner=bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4", string(payload))
}

func TestProposalASM(t *testing.T) {
	assert.Equal(t, "OP_RETURN alice.website=https://a.example",
		ProposalASM("alice", types.KeyWebsite, "https://a.example"))
}

func scriptOf(raw []byte) *script.Script {
	s := script.Script(raw)
	return &s
}
