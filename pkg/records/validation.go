package records

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/plebnames/go-plebnames/pkg/names"
	"github.com/plebnames/go-plebnames/pkg/types"
	"github.com/plebnames/go-plebnames/pkg/utils"
)

// Static error variables for err113 compliance
var (
	// ErrInvalidOwner rejects an owner record whose value is not an address.
	ErrInvalidOwner = errors.New("owner value is not a valid address")
	// ErrUnexpectedFormat flags a well-known key whose value does not look
	// like what the key promises. The value is still applied.
	ErrUnexpectedFormat = errors.New("value has an unexpected format")
)

// IsStrictKey reports whether a CheckValue failure for key must reject the record.
func IsStrictKey(key types.FieldKey) bool {
	return key == types.KeyOwner
}

// CheckValue validates the value of a well-known key.
//
// Parameters:
//   - key: The record key
//   - value: The record value
//   - network: The network owner addresses must belong to
//
// Returns:
//   - error: ErrInvalidOwner for a bad owner, ErrUnexpectedFormat for a
//     suspicious value of another well-known key, nil otherwise. Free-form
//     keys and empty values (field cleared) always pass.
func CheckValue(key types.FieldKey, value string, network types.Network) error {
	if key == types.KeyOwner {
		return checkOwner(value, network)
	}
	if value == "" {
		return nil
	}

	switch key {
	case types.KeyWebsite, types.KeyLinkTo:
		if !utils.IsWebURI(value) {
			return fmt.Errorf("%w: %s is not an http(s) URL", ErrUnexpectedFormat, key)
		}
	case types.KeyLightningAddress:
		if !utils.IsLightningAddress(value) {
			return fmt.Errorf("%w: %s is not of the form user@domain", ErrUnexpectedFormat, key)
		}
	case types.KeyNostr:
		if !utils.IsNostrPublicKey(value) {
			return fmt.Errorf("%w: %s is not an npub or hex public key", ErrUnexpectedFormat, key)
		}
	}
	return nil
}

func checkOwner(value string, network types.Network) error {
	if value == "" {
		return fmt.Errorf("%w: empty", ErrInvalidOwner)
	}

	params, err := names.NetParams(network)
	if err != nil {
		return err
	}

	address, err := btcutil.DecodeAddress(value, params)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidOwner, value, err)
	}
	if !address.IsForNet(params) {
		return fmt.Errorf("%w: %q belongs to another network", ErrInvalidOwner, value)
	}
	return nil
}
