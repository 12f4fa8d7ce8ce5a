package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldKey_IsWellKnown(t *testing.T) {
	for _, key := range WellKnownKeys {
		assert.True(t, key.IsWellKnown(), key)
	}
	assert.False(t, FieldKey("avatar").IsWellKnown())
	assert.False(t, FieldKey("Owner").IsWellKnown())
}

func TestNameRecord_GetSetClone(t *testing.T) {
	var record NameRecord
	for _, key := range WellKnownKeys {
		record.Set(key, "value-"+string(key))
	}
	record.Set("avatar", "https://img.example")

	for _, key := range WellKnownKeys {
		value, ok := record.Get(key)
		assert.True(t, ok, key)
		assert.Equal(t, "value-"+string(key), value)
	}
	avatar, ok := record.Get("avatar")
	assert.True(t, ok)
	assert.Equal(t, "https://img.example", avatar)

	clone := record.Clone()
	clone.Set("avatar", "changed")
	clone.Set(KeyWebsite, "")
	avatar, _ = record.Get("avatar")
	assert.Equal(t, "https://img.example", avatar)

	_, ok = clone.Get(KeyWebsite)
	assert.False(t, ok)
	_, ok = record.Get("missing")
	assert.False(t, ok)
}
