package store

import (
	"context"
	"fmt"
)

func persistEntities[E any](ctx context.Context, snapshots SnapshotStore, key string, c *entityCache[E]) error {
	if snapshots == nil {
		return ErrNoSnapshots
	}
	if err := snapshots.Save(ctx, key, c.snapshot(ctx)); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	c.logger.Debug("store persisted", "store", c.ns, "key", key)
	return nil
}

func restoreEntities[E any](ctx context.Context, snapshots SnapshotStore, key string, c *entityCache[E]) (bool, error) {
	if snapshots == nil {
		return false, ErrNoSnapshots
	}
	var snap snapshot[E]
	found, err := snapshots.Load(ctx, key, &snap)
	if err != nil {
		return false, fmt.Errorf("restore %s: %w", key, err)
	}
	if !found {
		return false, nil
	}
	if err := c.restore(ctx, snap); err != nil {
		return false, err
	}
	c.logger.Debug("store restored", "store", c.ns, "key", key, "records", len(snap.Records))
	return true, nil
}
