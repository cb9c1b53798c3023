package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnotherRiz/BitX-Sessions/internal/store"
)

func TestDecodeSessionsSeedsLegacyOrder(t *testing.T) {
	raw := []byte(`[
		{"id":"a","name":"work","domain":"example.com","order":3},
		{"id":"b","name":"home","domain":"example.com"}
	]`)

	sessions, err := decodeSessions(raw)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, 3, sessions[0].Order)
	assert.Equal(t, store.UnassignedOrder, sessions[1].Order)
}

func TestDecodeSessionsKeepsPayloadOpaque(t *testing.T) {
	raw := []byte(`[{"id":"a","payload":{"cookies":[{"name":"sid","value":"x"}]}}]`)

	sessions, err := decodeSessions(raw)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.JSONEq(t, `{"cookies":[{"name":"sid","value":"x"}]}`, string(sessions[0].Payload))
}

func TestDecodeSessionsRejectsMalformedArray(t *testing.T) {
	_, err := decodeSessions([]byte(`{"not":"an array"}`))
	assert.Error(t, err)
}
