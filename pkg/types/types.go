// Package types holds the vocabulary shared by the PlebNames packages: parsed
// update records, the name record projection, ledger query results and the
// resolution result handed to callers.
package types

import (
	"time"
)

// FieldKey is the key part of a `name.key=value` record.
// Any non-empty key is accepted; the constants below have a defined meaning.
type FieldKey string

// Well-known record keys
const (
	KeyOwner            FieldKey = "owner"
	KeyWebsite          FieldKey = "website"
	KeyLightningAddress FieldKey = "lightningAddress"
	KeyLinkTo           FieldKey = "linkTo"
	KeyNostr            FieldKey = "nostr"
)

// WellKnownKeys lists the keys stored in dedicated NameRecord fields.
//
//nolint:gochecknoglobals // read-only lookup table
var WellKnownKeys = []FieldKey{KeyOwner, KeyWebsite, KeyLightningAddress, KeyLinkTo, KeyNostr}

// IsWellKnown reports whether the key has a dedicated NameRecord field.
func (k FieldKey) IsWellKnown() bool {
	for _, known := range WellKnownKeys {
		if k == known {
			return true
		}
	}
	return false
}

// Network selects the address parameters (human-readable part, address versions).
type Network string

// Supported networks
const (
	NetworkMainnet Network = "mainnet"
	NetworkTestnet Network = "testnet"
	NetworkRegtest Network = "regtest"
)

// Record is a single parsed update extracted from a data-carrier output.
type Record struct {
	Name          string   `json:"name" bson:"name"`
	Key           FieldKey `json:"key" bson:"key"`
	Value         string   `json:"value" bson:"value"`
	SourceAddress string   `json:"sourceAddress,omitempty" bson:"sourceAddress,omitempty"`
	Txid          string   `json:"txid,omitempty" bson:"txid,omitempty"`
	Height        int64    `json:"height,omitempty" bson:"height,omitempty"`
}

// NameRecord is the current state of a claimed name.
// Empty strings mean the field was never set (or was cleared).
type NameRecord struct {
	Owner            string            `json:"owner" bson:"owner"`
	Website          string            `json:"website,omitempty" bson:"website,omitempty"`
	LightningAddress string            `json:"lightningAddress,omitempty" bson:"lightningAddress,omitempty"`
	LinkTo           string            `json:"linkTo,omitempty" bson:"linkTo,omitempty"`
	Nostr            string            `json:"nostr,omitempty" bson:"nostr,omitempty"`
	Extra            map[string]string `json:"extra,omitempty" bson:"extra,omitempty"`
}

// Get returns the value stored for key and whether it is set.
func (r *NameRecord) Get(key FieldKey) (string, bool) {
	var value string
	switch key {
	case KeyOwner:
		value = r.Owner
	case KeyWebsite:
		value = r.Website
	case KeyLightningAddress:
		value = r.LightningAddress
	case KeyLinkTo:
		value = r.LinkTo
	case KeyNostr:
		value = r.Nostr
	default:
		v, ok := r.Extra[string(key)]
		return v, ok
	}
	return value, value != ""
}

// Set stores value under key, last write wins.
func (r *NameRecord) Set(key FieldKey, value string) {
	switch key {
	case KeyOwner:
		r.Owner = value
	case KeyWebsite:
		r.Website = value
	case KeyLightningAddress:
		r.LightningAddress = value
	case KeyLinkTo:
		r.LinkTo = value
	case KeyNostr:
		r.Nostr = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[string(key)] = value
	}
}

// Clone returns a deep copy so callers never share the engine's map.
func (r NameRecord) Clone() NameRecord {
	clone := r
	if r.Extra != nil {
		clone.Extra = make(map[string]string, len(r.Extra))
		for k, v := range r.Extra {
			clone.Extra[k] = v
		}
	}
	return clone
}

// LedgerPosition orders a payload on the ledger.
// Height 0 means unconfirmed or unknown; Index orders payloads within one address listing.
type LedgerPosition struct {
	Height int64 `json:"height" bson:"height"`
	Index  int   `json:"index" bson:"index"`
}

// Confirmed reports whether the position carries a block height.
func (p LedgerPosition) Confirmed() bool {
	return p.Height > 0
}

// OutScript is one data-carrier payload originated by an address.
type OutScript struct {
	Payload  []byte         `json:"payload"`
	Txid     string         `json:"txid,omitempty"`
	Vout     uint32         `json:"vout"`
	Position LedgerPosition `json:"position"`
}

// Claim describes the first spend into a pad address.
type Claim struct {
	SourceAddress string `json:"sourceAddress" bson:"sourceAddress"`
	Txid          string `json:"txid,omitempty" bson:"txid,omitempty"`
	Height        int64  `json:"height,omitempty" bson:"height,omitempty"`
}

// UTXO is an unspent output of an address.
type UTXO struct {
	Txid  string `json:"txid"`
	Vout  uint32 `json:"vout"`
	Value uint64 `json:"value"`
}

// Rejection is a well-formed record that failed value validation.
type Rejection struct {
	Record Record `json:"record" bson:"record"`
	Reason string `json:"reason" bson:"reason"`
}

// ReplayStats counts what happened to every payload seen during a resolution.
type ReplayStats struct {
	Passes     int `json:"passes" bson:"passes"`
	Transfers  int `json:"transfers" bson:"transfers"`
	Applied    int `json:"applied" bson:"applied"`
	Unrelated  int `json:"unrelated" bson:"unrelated"`
	Malformed  int `json:"malformed" bson:"malformed"`
	Rejected   int `json:"rejected" bson:"rejected"`
	Superseded int `json:"superseded" bson:"superseded"`
}

// IssuerScripts lists the raw payloads fetched for one owner during one pass.
type IssuerScripts struct {
	Issuer   string   `json:"issuer" bson:"issuer"`
	Payloads []string `json:"payloads" bson:"payloads"`
}

// ResolutionStatus tells whether a name has been claimed.
type ResolutionStatus string

// Resolution statuses
const (
	StatusUnclaimed ResolutionStatus = "unclaimed"
	StatusClaimed   ResolutionStatus = "claimed"
)

// Resolution is the outcome of resolving one name.
type Resolution struct {
	Name           string           `json:"name" bson:"name"`
	NormalizedName string           `json:"normalizedName" bson:"_id"`
	PadAddress     string           `json:"padAddress" bson:"padAddress"`
	Status         ResolutionStatus `json:"status" bson:"status"`
	Claim          *Claim           `json:"claim,omitempty" bson:"claim,omitempty"`
	Record         *NameRecord      `json:"record,omitempty" bson:"record,omitempty"`
	Changes        []Record         `json:"changes,omitempty" bson:"changes,omitempty"`
	Rejections     []Rejection      `json:"rejections,omitempty" bson:"rejections,omitempty"`
	Scripts        []IssuerScripts  `json:"scripts,omitempty" bson:"scripts,omitempty"`
	Stats          ReplayStats      `json:"stats" bson:"stats"`
	ResolvedAt     time.Time        `json:"resolvedAt" bson:"resolvedAt"`
}

// Claimed reports whether the resolution found an owner.
func (r *Resolution) Claimed() bool {
	return r.Status == StatusClaimed
}

// Sighting is a record observed in an admitted overlay output, indexed by outpoint.
type Sighting struct {
	Outpoint  string    `json:"outpoint" bson:"outpoint"`
	Name      string    `json:"name" bson:"name"`
	Key       FieldKey  `json:"key" bson:"key"`
	Value     string    `json:"value" bson:"value"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// SortOrder is the direction used when listing sightings.
type SortOrder string

// Sort orders
const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// SightingQuery filters sightings in storage.
type SightingQuery struct {
	Name      *string    `json:"name,omitempty"`
	Key       *string    `json:"key,omitempty"`
	Limit     *int       `json:"limit,omitempty"`
	Skip      *int       `json:"skip,omitempty"`
	SortOrder *SortOrder `json:"sortOrder,omitempty"`
}
