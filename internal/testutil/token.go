package testutil

// FixedToken generates the same correlation token every time.
//
// Unlike intake.FixedTokens, which hands out a sequence and panics when it
// runs dry, FixedToken never runs out. Use it when a test does not care how
// many tokens are drawn.
//
// Thread-safety: FixedToken is stateless and safe for concurrent use.
type FixedToken struct {
	token string
}

// DefaultToken is returned by a FixedToken created with an empty token.
const DefaultToken = "0123456789ab"

// NewFixedToken creates a fixed token generator.
func NewFixedToken(token string) *FixedToken {
	if token == "" {
		token = DefaultToken
	}
	return &FixedToken{token: token}
}

// Generate returns the fixed token.
func (g *FixedToken) Generate() string {
	return g.token
}
