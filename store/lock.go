package store

import (
	"os"
	"path/filepath"

	"github.com/nightlyone/lockfile"
	"github.com/pkg/errors"
)

// LockDir takes a pid lock on dataDir so only one server process owns its
// collection files. The lock file is {dataDir}.lock, outside the directory.
// Call the returned function to release it.
func LockDir(dataDir string) (func() error, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, errors.Wrap(err, "resolve data directory")
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}
	lock, err := lockfile.New(filepath.Clean(abs) + ".lock")
	if err != nil {
		return nil, errors.Wrap(err, "create lock file")
	}
	if err := lock.TryLock(); err != nil {
		return nil, errors.Wrapf(err, "data directory %s is in use", abs)
	}
	return lock.Unlock, nil
}
