package integrations

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemWireShape(t *testing.T) {
	item := Item{
		ID:           "abc",
		Type:         "contacts",
		Name:         "Ada Lovelace",
		CreationTime: "2026-01-01T00:00:00Z",
	}

	encoded, err := json.Marshal(item)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "abc",
		"type": "contacts",
		"name": "Ada Lovelace",
		"creation_time": "2026-01-01T00:00:00Z"
	}`, string(encoded))

	var decoded Item

	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, item, decoded)
}

func TestProviderErrorExcerpt(t *testing.T) {
	long := make([]byte, 2048)
	for i := range long {
		long[i] = 'x'
	}

	err := NewProviderError(502, long)
	assert.Len(t, err.Body, 512)
	assert.Equal(t, 502, err.Status)
	assert.Contains(t, err.Error(), "502")
}
