package export

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	"github.com/AnotherRiz/BitX-Sessions/internal/store"
)

func TestMarshalProducesArrayShape(t *testing.T) {
	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = Marshal([]domain.Session{{ID: "a", Name: "work", Domain: "example.com"}})
	require.NoError(t, err)
	assert.Equal(t, byte('['), data[0])
}

func TestRoundTrip(t *testing.T) {
	in := []domain.Session{
		{ID: "a", Name: "work", Domain: "example.com", Order: 0, Payload: json.RawMessage(`{"cookies":[]}`)},
		{ID: "b", Name: "home", Domain: "example.com", Order: 1},
	}

	data, err := Marshal(in)
	require.NoError(t, err)

	out, err := Unmarshal(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	for i := range in {
		assert.Equal(t, in[i].ID, out[i].ID)
		assert.Equal(t, in[i].Name, out[i].Name)
		assert.Equal(t, in[i].Domain, out[i].Domain)
		assert.Equal(t, in[i].Order, out[i].Order)
	}
	// The encoder re-indents the payload, so compare it semantically.
	assert.JSONEq(t, string(in[0].Payload), string(out[0].Payload))
}

func TestUnmarshalSeedsMissingOrders(t *testing.T) {
	out, err := Unmarshal([]byte(`[
		{"id":"a","name":"work","domain":"example.com"},
		{"id":"b","name":"home","domain":"example.com","order":2}
	]`))
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, store.UnassignedOrder, out[0].Order, "absent order must stay distinguishable from 0")
	assert.Equal(t, 2, out[1].Order)
}

func TestUnmarshalRejectsObjectMapShape(t *testing.T) {
	_, err := Unmarshal([]byte(`{"example.com":[{"id":"a"}]}`))
	assert.Error(t, err)
}

func TestMergeReplacesImportedDomains(t *testing.T) {
	existing := []domain.Session{
		{ID: "a", Name: "work", Domain: "example.com"},
		{ID: "b", Name: "home", Domain: "example.com"},
		{ID: "c", Name: "admin", Domain: "other.org"},
	}
	imported := []domain.Session{
		{ID: "z", Name: "fresh", Domain: "example.com"},
	}

	merged := Merge(existing, imported)

	var ids []string
	for _, sess := range merged {
		ids = append(ids, sess.ID)
	}
	assert.ElementsMatch(t, []string{"c", "z"}, ids)
}

func TestMergePreservesUntouchedDomains(t *testing.T) {
	existing := []domain.Session{{ID: "c", Domain: "other.org"}}
	imported := []domain.Session{{ID: "z", Domain: "example.com"}}

	merged := Merge(existing, imported)
	assert.Len(t, merged, 2)
}
