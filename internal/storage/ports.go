// Package storage persists the application's collections as JSON blobs in a
// string key/value table. Each collection lives under its own independent
// key; writes are synchronous and per-key, there is no transaction spanning
// keys.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
)

// The six collection keys plus nothing else: the store is not a general
// cache. Key names are carried over from the data the previous dashboard
// left behind so an existing installation keeps its records.
const (
	KeyApartments = "coop_reset_apts"
	KeySettings   = "coop_settings"
	KeyExpenses   = "coop_expenses"
	KeyPayments   = "coop_payments"
	KeyNotices    = "coop_notices"
	KeyUsers      = "coop_users"
)

// Store is the persistence port. The SQLite implementation is the only one
// shipped; the seam exists so the backing store can be swapped for a real
// database without touching domain logic.
type Store interface {
	// Get returns the raw value under key. found is false when the key has
	// never been written.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set writes the value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	Close() error
}

// LoadJSON reads the collection under key into v. Returns found=false,
// leaving v untouched, when the key is absent so the caller can seed a
// default.
func LoadJSON(ctx context.Context, s Store, key string, v any) (found bool, err error) {
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
