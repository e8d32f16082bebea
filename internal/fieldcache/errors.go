package fieldcache

import "errors"

// ErrWriteFailed is returned by MemoryStorage when FailWrites is set.
var ErrWriteFailed = errors.New("fieldcache: storage write failed")
