package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataValueScanRoundTrip(t *testing.T) {
	original := Metadata{
		"source":    "guideline v4.2",
		"section":   "Borrower Eligibility",
		"effective": "2026-01-01",
		"min_fico":  680,
		"expired":   false,
	}

	value, err := original.Value()
	require.NoError(t, err)
	raw, ok := value.([]byte)
	require.True(t, ok)

	var restored Metadata
	require.NoError(t, restored.Scan(raw))
	assert.Equal(t, "guideline v4.2", restored["source"])
	assert.Equal(t, "Borrower Eligibility", restored["section"])
	assert.Equal(t, float64(680), restored["min_fico"])
	assert.Equal(t, false, restored["expired"])
}

func TestMetadataScanNilYieldsEmptyMap(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Len(t, m, 0)
}

func TestMetadataScanRejectsNonBytes(t *testing.T) {
	var m Metadata
	err := m.Scan(12345)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type assertion")
}

func TestMetadataUnmarshalNestedStructures(t *testing.T) {
	var m Metadata
	require.NoError(t, m.Unmarshal([]byte(`{
		"overlays": {"state": "TX", "max_ltv": 0.85},
		"programs": ["nqm", "dscr"]
	}`)))

	overlays, ok := m["overlays"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "TX", overlays["state"])
	assert.Equal(t, 0.85, overlays["max_ltv"])
}

func TestMetadataUnmarshalInvalidJSON(t *testing.T) {
	var m Metadata
	assert.Error(t, m.Unmarshal([]byte(`{not json}`)))
}

func TestMetadataMarshalEmpty(t *testing.T) {
	b, err := Metadata{}.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), b)
}
