package options

import (
	"context"
	"encoding/json"
	"fmt"

	"vtransform/internal/store"
)

// Load reads and restores the stored options. An empty store yields the defaults.
func Load(ctx context.Context, s store.Store) (Options, error) {
	raw, err := s.Load(ctx)
	if err != nil {
		return Options{}, fmt.Errorf("load options: %w", err)
	}
	return Restore(raw)
}

// Save persists o as-is. Callers run Prepare first.
func Save(ctx context.Context, s store.Store, o Options) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	if err := s.Save(ctx, data); err != nil {
		return fmt.Errorf("save options: %w", err)
	}
	return nil
}
