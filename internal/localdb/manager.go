package localdb

import (
	"context"
	"fmt"
	"time"
)

// OpenWithRetry opens the run-history DB under stateDir, retrying with
// backoff a few times. sqlite occasionally returns a transient "database
// is locked" error on first open right after another process released
// its handle; retrying here avoids surfacing that as a hard startup
// failure.
func OpenWithRetry(ctx context.Context, stateDir string) (*DB, error) {
	var (
		db  *DB
		err error
	)
	for i := 0; i < 5; i++ {
		db, err = Open(stateDir)
		if err == nil {
			return db, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(200*(i+1)) * time.Millisecond):
		}
	}
	return nil, fmt.Errorf("localdb: open run-history db: %w", err)
}
