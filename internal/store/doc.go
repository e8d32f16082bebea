// Package store provides SQLite-backed durable storage for persisted form fields.
//
// The store is a flat key/value table. Keys are "<namespace>:<field>"
// (for example "intake:nombre"); the namespace is owned by the form that
// writes it, and every field owns exclusive write access to its own key, so no
// coordination beyond the key design is needed.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads while another CLI invocation writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//
// # Schema Versions
//
//   - 0: bare field keys ("nombre"), as written by earlier releases
//   - 1: namespaced keys; bare keys are moved under "intake:"
package store
