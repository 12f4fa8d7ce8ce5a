// Package records encodes and decodes the `name.key=value` update records
// carried in data-carrier (OP_RETURN) outputs.
package records

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/types"
	"github.com/plebnames/go-plebnames/pkg/utils"
)

// MaxPayloadLength is the largest payload that fits a single-byte push
// (opcodes 0x01-0x4b) after OP_RETURN.
const MaxPayloadLength = 75

const (
	nameSeparator  = "."
	valueSeparator = "="
)

// Static error variables for err113 compliance
var (
	// ErrMalformed is matched by every ParseError.
	ErrMalformed = errors.New("malformed record")
	// ErrUnrelated marks a well-formed record for a different name.
	ErrUnrelated = errors.New("record belongs to another name")
	// ErrPayloadTooLarge is matched by every PayloadLengthError.
	ErrPayloadTooLarge = errors.New("record payload exceeds the data-carrier push limit")
	ErrNonASCII        = errors.New("record contains non-ASCII characters")
	ErrNotDataCarrier  = errors.New("script is not a data-carrier output")
	// ErrNameHasDot rejects a name that would split the record early.
	ErrNameHasDot    = errors.New("record name must not contain '.'")
	errEmptyName     = errors.New("record name is empty")
	errEmptyKey      = errors.New("record key is empty")
	errKeyHasEquals  = errors.New("record key must not contain '='")
	errMissingDot    = errors.New("missing '.' between name and key")
	errMissingEquals = errors.New("missing '=' between key and value")
	errEmptyPayload  = errors.New("payload is empty")
)

// ParseError reports a payload that is not a record.
type ParseError struct {
	Payload string
	Reason  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed record %q: %v", e.Payload, e.Reason)
}

// Unwrap exposes the reason.
func (e *ParseError) Unwrap() error {
	return e.Reason
}

// Is makes errors.Is(err, ErrMalformed) succeed.
func (e *ParseError) Is(target error) bool {
	return target == ErrMalformed
}

// PayloadLengthError reports a payload over MaxPayloadLength.
type PayloadLengthError struct {
	Length int
}

func (e *PayloadLengthError) Error() string {
	return fmt.Sprintf("record payload is %d bytes, the limit is %d", e.Length, MaxPayloadLength)
}

// Is makes errors.Is(err, ErrPayloadTooLarge) succeed.
func (e *PayloadLengthError) Is(target error) bool {
	return target == ErrPayloadTooLarge
}

// Encode builds the ASCII payload `name.key=value`.
// Payloads longer than MaxPayloadLength are rejected, never truncated.
func Encode(name string, key types.FieldKey, value string) ([]byte, error) {
	switch {
	case name == "":
		return nil, errEmptyName
	case strings.Contains(name, nameSeparator):
		return nil, fmt.Errorf("%w: %q", ErrNameHasDot, name)
	case key == "":
		return nil, errEmptyKey
	case strings.Contains(string(key), valueSeparator):
		return nil, fmt.Errorf("%w: %q", errKeyHasEquals, key)
	}

	text := name + nameSeparator + string(key) + valueSeparator + value
	if !utils.IsASCIIString(text) {
		return nil, fmt.Errorf("%w: %q", ErrNonASCII, text)
	}

	payload := utils.ASCIIToBytes(text)
	if len(payload) > MaxPayloadLength {
		return nil, &PayloadLengthError{Length: len(payload)}
	}
	return payload, nil
}

// Parse splits a payload on the first '.' (name) and then on the first '='
// (key, value). The value may contain further '.' and '=' characters.
// The returned record's name is normalized.
func Parse(payload []byte) (*types.Record, error) {
	text := string(payload)

	if len(payload) == 0 {
		return nil, &ParseError{Payload: text, Reason: errEmptyPayload}
	}
	if !utils.IsASCII(payload) {
		return nil, &ParseError{Payload: text, Reason: ErrNonASCII}
	}

	name, rest, found := strings.Cut(text, nameSeparator)
	if !found {
		return nil, &ParseError{Payload: text, Reason: errMissingDot}
	}
	key, value, found := strings.Cut(rest, valueSeparator)
	if !found {
		return nil, &ParseError{Payload: text, Reason: errMissingEquals}
	}

	normalized := names.Normalize(name)
	if normalized == "" {
		return nil, &ParseError{Payload: text, Reason: errEmptyName}
	}
	if key == "" {
		return nil, &ParseError{Payload: text, Reason: errEmptyKey}
	}

	return &types.Record{
		Name:  normalized,
		Key:   types.FieldKey(key),
		Value: value,
	}, nil
}

// Decode parses payload and checks it belongs to name. Names are compared in
// normalized form, since every spelling of a name shares one pad address.
// A record for another name yields ErrUnrelated.
func Decode(payload []byte, name string) (*types.Record, error) {
	record, err := Parse(payload)
	if err != nil {
		return nil, err
	}
	if record.Name != names.Normalize(name) {
		return nil, fmt.Errorf("%w: %q", ErrUnrelated, record.Name)
	}
	return record, nil
}

// EncodeScript wraps payload in an `OP_RETURN <len> <payload>` locking script.
func EncodeScript(payload []byte) (*script.Script, error) {
	if len(payload) == 0 {
		return nil, errEmptyPayload
	}
	if len(payload) > MaxPayloadLength {
		return nil, &PayloadLengthError{Length: len(payload)}
	}

	s := &script.Script{}
	if err := s.AppendOpcodes(script.OpRETURN); err != nil {
		return nil, fmt.Errorf("failed to append OP_RETURN: %w", err)
	}
	if err := s.AppendPushData(payload); err != nil {
		return nil, fmt.Errorf("failed to append record payload: %w", err)
	}
	return s, nil
}

// EncodeRecordScript is Encode followed by EncodeScript.
func EncodeRecordScript(name string, key types.FieldKey, value string) (*script.Script, error) {
	payload, err := Encode(name, key, value)
	if err != nil {
		return nil, err
	}
	return EncodeScript(payload)
}

// PayloadFromScript extracts the pushed payload of an `OP_RETURN <push>` or
// `OP_FALSE OP_RETURN <push>` script. Direct pushes and OP_PUSHDATA1 are
// accepted; anything after the push makes the script a non-record.
func PayloadFromScript(s *script.Script) ([]byte, error) {
	if s == nil {
		return nil, ErrNotDataCarrier
	}
	b := []byte(*s)

	if len(b) > 0 && b[0] == script.OpFALSE {
		b = b[1:]
	}
	if len(b) < 2 || b[0] != script.OpRETURN {
		return nil, ErrNotDataCarrier
	}
	b = b[1:]

	var length int
	switch op := b[0]; {
	case op >= script.OpDATA1 && op <= script.OpDATA75:
		length = int(op)
		b = b[1:]
	case op == script.OpPUSHDATA1 && len(b) >= 2:
		length = int(b[1])
		b = b[2:]
	default:
		return nil, ErrNotDataCarrier
	}

	if length == 0 || len(b) != length {
		return nil, ErrNotDataCarrier
	}
	payload := make([]byte, length)
	copy(payload, b)
	return payload, nil
}

// ProposalASM renders the script an owner has to broadcast, in the
// human-readable form wallets accept ("OP_RETURN alice.website=...").
func ProposalASM(name string, key types.FieldKey, value string) string {
	return "OP_RETURN " + name + nameSeparator + string(key) + valueSeparator + value
}
