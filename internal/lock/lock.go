// Package lock guards against overlapping runs on the same host.
package lock

import (
	"fmt"

	"github.com/gofrs/flock"
)

// Acquire takes the run lock at path without blocking. Callers must Unlock
// the returned lock when the run ends.
func Acquire(path string) (*flock.Flock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("another run holds the lock at %s", path)
	}
	return fl, nil
}
