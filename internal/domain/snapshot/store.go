package snapshot

import "context"

// Store persists snapshots. Load reports false when no snapshot exists.
// Concurrent writers are not supported; the last save wins.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
}
