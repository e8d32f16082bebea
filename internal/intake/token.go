package intake

import (
	"encoding/hex"
	"sync"

	"github.com/google/uuid"
)

// TokenLength is the number of hex characters in a correlation token.
const TokenLength = 12

// TokenGenerator produces correlation tokens.
type TokenGenerator interface {
	Generate() string
}

// RandomTokens draws tokens from random (v4) UUIDs.
//
// The first six bytes of a v4 UUID are fully random, so the token is
// 48 random bits rendered as 12 lowercase hex characters.
//
// Thread-safety: RandomTokens is stateless and safe for concurrent use.
type RandomTokens struct{}

// Generate returns a fresh 12-character token.
func (RandomTokens) Generate() string {
	u := uuid.New()
	return hex.EncodeToString(u[:TokenLength/2])
}

// FixedTokens returns predetermined tokens for testing.
//
// Thread-safety: FixedTokens is safe for concurrent use via internal mutex.
type FixedTokens struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokens creates a generator that returns tokens in order.
func NewFixedTokens(tokens ...string) *FixedTokens {
	return &FixedTokens{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed, which means the test issued more
// submissions than it planned for.
func (g *FixedTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedTokens: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}

// Used returns how many tokens have been handed out.
func (g *FixedTokens) Used() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.idx
}
