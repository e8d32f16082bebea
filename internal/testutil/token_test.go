package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixedToken_ReturnsSameToken(t *testing.T) {
	gen := NewFixedToken("abcdefabcdef")

	assert.Equal(t, "abcdefabcdef", gen.Generate())
	assert.Equal(t, "abcdefabcdef", gen.Generate())
}

func TestFixedToken_EmptyTokenDefault(t *testing.T) {
	assert.Equal(t, DefaultToken, NewFixedToken("").Generate())
}
