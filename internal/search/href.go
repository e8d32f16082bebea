package search

import (
	"net/url"
	"strings"

	"github.com/roach88/slipdesk/internal/model"
)

// Link bases used by ResolveHref.
const (
	DefaultEvidenceBase = "/api/_buscar/_evid/"
	DefaultAPIPrefix    = "/api"
)

// Resolver maps result preview URLs to links a user can open.
type Resolver struct {
	EvidenceBase string
	APIPrefix    string
}

// DefaultResolver resolves against the gateway's /api mount.
func DefaultResolver() Resolver {
	return Resolver{EvidenceBase: DefaultEvidenceBase, APIPrefix: DefaultAPIPrefix}
}

// ResolveHref uses DefaultResolver.
func ResolveHref(item model.Item) string {
	return DefaultResolver().Resolve(item)
}

// Resolve returns the link for item.
//
// Download previews are served through the evidence route by file name.
// Other absolute paths are mounted under the API prefix. Anything else is
// returned as is, or "#" when empty.
func (r Resolver) Resolve(item model.Item) string {
	switch {
	case strings.HasPrefix(item.PreviewURL, "/_download/"):
		return r.EvidenceBase + url.PathEscape(item.Filename)
	case strings.HasPrefix(item.PreviewURL, "/"):
		return r.APIPrefix + item.PreviewURL
	case item.PreviewURL != "":
		return item.PreviewURL
	default:
		return "#"
	}
}
