package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalNoHTMLEscapeNoNewline(t *testing.T) {
	b, err := JSON.Marshal(map[string]string{"q": "a<b&c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a<b&c>d"}`, string(b))
}

func TestUnmarshalStrict(t *testing.T) {
	type envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error,omitempty"`
	}

	var e envelope
	require.NoError(t, JSON.Unmarshal([]byte(`{"success":false,"error":"x"}`), &e))
	assert.False(t, e.Success)
	assert.Equal(t, "x", e.Error)

	assert.Error(t, JSON.Unmarshal([]byte(`{"success":true,"bogus":1}`), &e), "unknown field")
	assert.Error(t, JSON.Unmarshal([]byte(`{"success":true}{"success":false}`), &e), "trailing content")
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", JSON.ContentType())
}
