package store

import (
	"context"
	"errors"

	"github.com/joescharf/clawdash/internal/snapshot"
)

// ErrNoSnapshot is returned by LatestSnapshot when nothing has been
// cached yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Store caches the most recent process snapshot so the dashboard can
// serve last-known data while the gateway CLI is unreachable. Only the
// latest snapshot is kept; there is no history.
type Store interface {
	SaveSnapshot(ctx context.Context, snap *snapshot.Snapshot) error
	LatestSnapshot(ctx context.Context) (*snapshot.Snapshot, error)

	Migrate(ctx context.Context) error
	Close() error
}
