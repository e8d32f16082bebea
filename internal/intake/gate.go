package intake

import (
	"fmt"
	"mime"
	"strings"
	"sync"

	"github.com/roach88/slipdesk/internal/model"
)

// MaxFileSize is the largest accepted file, inclusive.
const MaxFileSize = 15 * 1024 * 1024

// allowedTypes is the MIME allow-set. image/jpg is not a registered type but
// some clients declare it.
var allowedTypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/gif":       true,
	"application/pdf": true,
}

// AllowedTypes returns the accepted MIME types.
func AllowedTypes() []string {
	return []string{"image/png", "image/jpeg", "image/jpg", "image/gif", "application/pdf"}
}

// NormalizeType lower-cases a declared content type and strips parameters.
func NormalizeType(contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" {
		return ""
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	ct, _, _ = strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// Validate accepts or rejects f by declared type and size only.
// An empty type is unsupported, never a wildcard.
func Validate(f model.File) error {
	ct := NormalizeType(f.ContentType)
	if !allowedTypes[ct] {
		shown := ct
		if shown == "" {
			shown = "unknown"
		}
		return &ValidationError{
			Code:    ErrCodeUnsupportedType,
			Message: fmt.Sprintf("type not allowed: %s", shown),
		}
	}
	if f.Size > MaxFileSize {
		return &ValidationError{
			Code:    ErrCodeTooLarge,
			Message: fmt.Sprintf("file is %d bytes, limit is 15MB", f.Size),
		}
	}
	return nil
}

// Gate holds the file selected for the next submission.
//
// Thread-safety: Gate is safe for concurrent use.
type Gate struct {
	mu   sync.Mutex
	held *model.File
}

// Hold validates f and, on success, replaces the held file with it.
// A rejected file leaves the held file untouched.
func (g *Gate) Hold(f model.File) error {
	if err := Validate(f); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = &f
	return nil
}

// Held returns the held file and whether there is one.
func (g *Gate) Held() (model.File, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held == nil {
		return model.File{}, false
	}
	return *g.held, true
}

// Clear drops the held file.
func (g *Gate) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = nil
}
