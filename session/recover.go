package session

import (
	"context"
	"fmt"
)

// Recovery is an unfinished session found at startup. The caller either
// restores it or discards it.
type Recovery struct {
	store    Store
	snapshot *Snapshot
}

// Recover checks store for a prior session. It returns nil and no error
// when there is none.
func Recover(ctx context.Context, store Store) (*Recovery, error) {
	s, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return nil, nil
	}
	return &Recovery{store: store, snapshot: s}, nil
}

// Restore returns the recovered snapshot for the caller to adopt.
func (r *Recovery) Restore() Snapshot { return *r.snapshot }

// Discard deletes the stored snapshot.
func (r *Recovery) Discard(ctx context.Context) error {
	return r.store.Clear(ctx)
}
