package names

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/plebnames/go-plebnames/pkg/types"
)

// Program lengths, counted in 5-bit groups.
const (
	// shortProgramGroups encodes a 20-byte witness program.
	shortProgramGroups = 32
	// longProgramGroups encodes a 32-byte witness program; 52*5 = 260 bits,
	// the last 4 bits must be zero so the final group is always filler.
	longProgramGroups = 52

	// MaxShortNameLength is the longest name that fits a 20-byte program.
	MaxShortNameLength = shortProgramGroups
	// MaxNameLength is the longest name a pad address can carry.
	MaxNameLength = longProgramGroups - 1

	witnessVersion = 0
)

// Static error variables for err113 compliance
var (
	// ErrInvalidName is matched by every InvalidNameError.
	ErrInvalidName         = errors.New("invalid name")
	ErrUnknownNetwork      = errors.New("unknown network")
	ErrNotPadAddress       = errors.New("address is not a pad address")
	errEmptyName           = errors.New("name is empty")
	errNameTooLong         = fmt.Errorf("name is longer than %d characters", MaxNameLength)
	errNameNotNormalized   = errors.New("name contains characters outside the name alphabet")
	errUnsupportedVersion  = errors.New("unsupported witness version")
	errUnexpectedProgram   = errors.New("unexpected witness program length")
	errFillerInsideName    = errors.New("filler found inside the name part of the program")
	errMissingTrailingPads = errors.New("32-byte program without trailing filler")
)

// InvalidNameError reports a name that cannot be mapped to a legal witness program.
type InvalidNameError struct {
	Name   string
	Reason error
}

func (e *InvalidNameError) Error() string {
	return fmt.Sprintf("invalid name %q: %v", e.Name, e.Reason)
}

// Unwrap exposes the reason.
func (e *InvalidNameError) Unwrap() error {
	return e.Reason
}

// Is makes errors.Is(err, ErrInvalidName) succeed.
func (e *InvalidNameError) Is(target error) bool {
	return target == ErrInvalidName
}

// NetParams returns the chain parameters for a network.
func NetParams(network types.Network) (*chaincfg.Params, error) {
	switch network {
	case types.NetworkMainnet, "":
		return &chaincfg.MainNetParams, nil
	case types.NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	case types.NetworkRegtest:
		return &chaincfg.RegressionNetParams, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownNetwork, network)
	}
}

// PadAddress derives the pad address of an already normalized name.
//
// The name's characters are the witness program's 5-bit groups, right-padded
// with Filler to 32 groups (names up to 32 characters) or 52 groups (names of
// 33 to 51 characters). Distinct names always produce distinct addresses:
// within one program length the name is the program minus trailing filler, and
// the filler never occurs in a name.
func PadAddress(name string, network types.Network) (string, error) {
	if name == "" {
		return "", &InvalidNameError{Name: name, Reason: errEmptyName}
	}
	if len(name) > MaxNameLength {
		return "", &InvalidNameError{Name: name, Reason: errNameTooLong}
	}
	if !IsNormalized(name) {
		return "", &InvalidNameError{Name: name, Reason: errNameNotNormalized}
	}

	params, err := NetParams(network)
	if err != nil {
		return "", err
	}

	groups := shortProgramGroups
	if len(name) > MaxShortNameLength {
		groups = longProgramGroups
	}

	data := make([]byte, 0, groups+1)
	data = append(data, witnessVersion)
	for i := 0; i < len(name); i++ {
		data = append(data, byte(strings.IndexByte(Charset, name[i])))
	}
	for len(data) < groups+1 {
		data = append(data, 0) // Filler is value 0
	}

	address, err := bech32.Encode(params.Bech32HRPSegwit, data)
	if err != nil {
		return "", fmt.Errorf("failed to encode pad address: %w", err)
	}
	return address, nil
}

// AddressForName normalizes raw and derives its pad address.
func AddressForName(raw string, network types.Network) (normalized, address string, err error) {
	normalized = Normalize(raw)
	address, err = PadAddress(normalized, network)
	return normalized, address, err
}

// NameFromPadAddress recovers the normalized name carried by a pad address.
// Addresses that could not have been produced by PadAddress return ErrNotPadAddress.
func NameFromPadAddress(address string) (string, error) {
	_, data, err := bech32.Decode(strings.ToLower(address))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotPadAddress, err)
	}
	if len(data) == 0 || data[0] != witnessVersion {
		return "", fmt.Errorf("%w: %w", ErrNotPadAddress, errUnsupportedVersion)
	}

	program := data[1:]
	if len(program) != shortProgramGroups && len(program) != longProgramGroups {
		return "", fmt.Errorf("%w: %w: %d groups", ErrNotPadAddress, errUnexpectedProgram, len(program))
	}
	if len(program) == longProgramGroups && program[len(program)-1] != 0 {
		return "", fmt.Errorf("%w: %w", ErrNotPadAddress, errMissingTrailingPads)
	}

	end := len(program)
	for end > 0 && program[end-1] == 0 {
		end--
	}

	var b strings.Builder
	for _, group := range program[:end] {
		if group == 0 {
			return "", fmt.Errorf("%w: %w", ErrNotPadAddress, errFillerInsideName)
		}
		b.WriteByte(Charset[group])
	}

	name := b.String()
	if name == "" || (len(program) == longProgramGroups) != (len(name) > MaxShortNameLength) {
		return "", fmt.Errorf("%w: %w", ErrNotPadAddress, errUnexpectedProgram)
	}
	return name, nil
}
