package store

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrCorrupt is returned when a stored document cannot be parsed as JSON.
// Any other error from a Store is an I/O failure.
var ErrCorrupt = errors.New("stored document is not valid JSON")

// IsCorrupt reports whether err was caused by a corrupt stored document.
func IsCorrupt(err error) bool {
	return errors.Is(err, ErrCorrupt)
}

func checkStored(collection string, data []byte) error {
	if !json.Valid(data) {
		return errors.Wrapf(ErrCorrupt, "read %s", collection)
	}
	return nil
}
