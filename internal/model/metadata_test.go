package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_PreservesOrder(t *testing.T) {
	var m Metadata
	m.Set("producto", "ESTA")
	m.Set("numero_personas", 2)
	m.Set("nombre", "Ana")
	m.Set("correo", nil)

	got, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, `{"producto":"ESTA","numero_personas":2,"nombre":"Ana","correo":null}`, string(got))
}

func TestMetadata_SetReplacesInPlace(t *testing.T) {
	var m Metadata
	m.Set("a", "1")
	m.Set("b", "2")
	m.Set("a", "3")

	assert.Equal(t, []string{"a", "b"}, m.Names())
	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, "3", v)
}

func TestMetadata_NFCNormalizesStrings(t *testing.T) {
	// "e" + combining acute accent (NFD) must encode as precomposed é (NFC)
	var m Metadata
	m.Set("nombre", "Jose\u0301")

	got, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t, "{\"nombre\":\"Jos\u00e9\"}", string(got))
}

func TestMetadata_NoHTMLEscaping(t *testing.T) {
	var m Metadata
	m.Set("observaciones", "a<b & c>d")

	// json.Marshal re-escapes Marshaler output, so call the codec directly
	got, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"observaciones":"a<b & c>d"}`, string(got))
}

func TestMetadata_RejectsUnsupportedTypes(t *testing.T) {
	var m Metadata
	m.Set("valor", 1.5)

	_, err := json.Marshal(m)
	assert.Error(t, err)
}

func TestMetadata_Empty(t *testing.T) {
	got, err := json.Marshal(Metadata{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}

func TestOutcomeKind_String(t *testing.T) {
	assert.Equal(t, "approved", OutcomeApproved.String())
	assert.Equal(t, "manual_required", OutcomeManualRequired.String())
	assert.Equal(t, "unknown", OutcomeKind(0).String())
	assert.Equal(t, "failed", CorrelationFailed.String())
}
