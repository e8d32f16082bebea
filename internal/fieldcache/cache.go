// Package fieldcache persists form field values between sessions.
//
// Every field of a form owns the key "<namespace>:<field>" in a shared
// key/value Storage. A Cache restores values once, writes each change back
// synchronously, and clears only the keys of its own namespace. Storage
// failures are logged and swallowed: losing a cached value must never turn
// into a user-facing error.
package fieldcache

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/slipdesk/internal/store"
)

// Storage is the key/value capability a Cache writes through.
// *store.Store satisfies it.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(keys ...string) error
}

// Cache binds the fields of one form namespace to Storage.
//
// Thread-safety: Cache is safe for concurrent use.
type Cache struct {
	storage   Storage
	namespace string
	fields    []string
	defaults  map[string]string
	logger    *zap.Logger

	mu       sync.Mutex
	restored map[string]string
	dirty    map[string]bool
}

// New creates a cache for the given fields. defaults supplies the value a
// field restores to when storage holds nothing for it.
func New(storage Storage, namespace string, fields []string, defaults map[string]string, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		storage:   storage,
		namespace: namespace,
		fields:    append([]string(nil), fields...),
		defaults:  defaults,
		logger:    logger.With(zap.String("namespace", namespace)),
		dirty:     make(map[string]bool),
	}
}

// Namespace returns the form namespace.
func (c *Cache) Namespace() string {
	return c.namespace
}

// Fields returns the declared field names.
func (c *Cache) Fields() []string {
	return append([]string(nil), c.fields...)
}

// Key returns the storage key owned by field.
func (c *Cache) Key(field string) string {
	return store.NamespaceKey(c.namespace, field)
}

// Restore returns the persisted values to pre-fill the form with.
//
// Storage is read on the first call only; later calls return the same
// snapshot. Fields changed through Bind before the first call are left out
// so a restored value never overwrites what the user already typed.
func (c *Cache) Restore() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.restored == nil {
		c.restored = make(map[string]string, len(c.fields))
		for _, f := range c.fields {
			if c.dirty[f] {
				continue
			}
			v, ok, err := c.storage.Get(c.Key(f))
			if err != nil {
				c.logger.Warn("field restore failed", zap.String("field", f), zap.Error(err))
			}
			if ok && v != "" {
				c.restored[f] = v
				continue
			}
			if d, ok := c.defaults[f]; ok {
				c.restored[f] = d
			}
		}
	}

	out := make(map[string]string, len(c.restored))
	for k, v := range c.restored {
		out[k] = v
	}
	return out
}

// Bind returns the change handler for field. Each call writes the trimmed
// value through to storage before returning.
func (c *Cache) Bind(field string) func(string) {
	key := c.Key(field)
	return func(value string) {
		c.mu.Lock()
		c.dirty[field] = true
		c.mu.Unlock()

		if err := c.storage.Set(key, strings.TrimSpace(value)); err != nil {
			c.logger.Warn("field write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Apply runs the Bind handler of every field present in values.
func (c *Cache) Apply(values map[string]string) {
	for _, f := range c.fields {
		if v, ok := values[f]; ok {
			c.Bind(f)(v)
		}
	}
}

// Clear deletes the keys of the declared fields and nothing else.
func (c *Cache) Clear() {
	keys := make([]string, len(c.fields))
	for i, f := range c.fields {
		keys[i] = c.Key(f)
	}
	if err := c.storage.Delete(keys...); err != nil {
		c.logger.Warn("field clear failed", zap.Error(err))
	}

	c.mu.Lock()
	c.dirty = make(map[string]bool)
	c.mu.Unlock()
}
