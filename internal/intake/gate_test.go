package intake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/slipdesk/internal/model"
)

func TestValidate_AllowedTypes(t *testing.T) {
	for _, ct := range AllowedTypes() {
		t.Run(ct, func(t *testing.T) {
			assert.NoError(t, Validate(model.File{ContentType: ct, Size: 1}))
		})
	}
}

func TestValidate_UnsupportedTypes(t *testing.T) {
	for _, ct := range []string{"", "   ", "image/webp", "text/plain", "application/octet-stream", "image/*", "pdf"} {
		t.Run(ct, func(t *testing.T) {
			err := Validate(model.File{ContentType: ct, Size: 1})
			require.Error(t, err)
			assert.True(t, IsUnsupportedType(err))
		})
	}
}

func TestValidate_TypeNormalization(t *testing.T) {
	assert.NoError(t, Validate(model.File{ContentType: "Image/PNG", Size: 1}))
	assert.NoError(t, Validate(model.File{ContentType: "application/pdf; name=x.pdf", Size: 1}))
}

func TestValidate_SizeBoundary(t *testing.T) {
	assert.NoError(t, Validate(model.File{ContentType: "image/png", Size: 0}))
	assert.NoError(t, Validate(model.File{ContentType: "image/png", Size: MaxFileSize}))

	err := Validate(model.File{ContentType: "image/png", Size: MaxFileSize + 1})
	require.Error(t, err)
	assert.True(t, IsTooLarge(err))
	assert.Equal(t, 15*1024*1024, MaxFileSize)
}

func TestValidate_TypeCheckedBeforeSize(t *testing.T) {
	err := Validate(model.File{ContentType: "text/plain", Size: MaxFileSize + 1})
	assert.True(t, IsUnsupportedType(err))
}

func TestGate_HoldReplacesOnlyOnSuccess(t *testing.T) {
	var g Gate
	_, ok := g.Held()
	assert.False(t, ok)

	first := model.File{Name: "a.png", ContentType: "image/png", Size: 10}
	require.NoError(t, g.Hold(first))

	err := g.Hold(model.File{Name: "b.txt", ContentType: "text/plain", Size: 10})
	require.Error(t, err)

	held, ok := g.Held()
	require.True(t, ok)
	assert.Equal(t, "a.png", held.Name, "rejected file must not replace the held one")

	second := model.File{Name: "c.pdf", ContentType: "application/pdf", Size: 10}
	require.NoError(t, g.Hold(second))
	held, _ = g.Held()
	assert.Equal(t, "c.pdf", held.Name)

	g.Clear()
	_, ok = g.Held()
	assert.False(t, ok)
}
