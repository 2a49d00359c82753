package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFile is created in every output directory while a build writes to it.
const LockFile = ".lmassets.lock"

// ErrLocked is returned when another process holds the output directory.
var ErrLocked = errors.New("artifact: output directory is locked")

const lockRetry = 100 * time.Millisecond

// LockDir takes the exclusive build lock of dir, creating dir if needed.
// It waits up to timeout; a zero timeout tries once.
func LockDir(dir string, timeout time.Duration) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact: create %s: %w", dir, err)
	}

	lockPath := filepath.Join(dir, LockFile)
	l := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := l.TryLock()
	if err == nil && !locked && timeout > 0 {
		locked, err = l.TryLockContext(ctx, lockRetry)
	}

	switch {
	case locked:
		return func() { _ = l.Unlock() }, nil
	case err != nil && !errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("artifact: lock %s: %w", lockPath, err)
	default:
		return nil, fmt.Errorf("%w: %s", ErrLocked, lockPath)
	}
}
