package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/custodia-labs/ragdesk/internal/core/domain"
	"github.com/custodia-labs/ragdesk/internal/logger"
)

// LockSuffix names the advisory lock file kept next to a record.
const LockSuffix = ".lock"

// lockRetry is the polling interval while another process holds a lock.
const lockRetry = 20 * time.Millisecond

// withFileLock runs fn while holding an exclusive advisory lock on
// path+LockSuffix. The lock is shared by every process on the host, so
// read-modify-write cycles on one record never interleave.
func withFileLock(ctx context.Context, path string, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %v", domain.ErrStorageWrite, filepath.Dir(path), err)
	}

	fl := flock.New(path + LockSuffix)
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("%w: lock %s: %v", domain.ErrStorageWrite, path, err)
	}
	if !locked {
		return fmt.Errorf("%w: lock %s: not acquired", domain.ErrStorageWrite, path)
	}
	defer func() {
		if err := fl.Unlock(); err != nil {
			logger.Warn("unlock %s: %v", path, err)
		}
	}()

	return fn()
}
