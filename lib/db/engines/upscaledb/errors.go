package upscaledb

import (
	"errors"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/cockroachdb/pebble"
)

var (
	errNamespaceLimit = errors.New("namespace limit reached")
	errKeyNotFound    = errors.New("UPS_KEY_NOT_FOUND: key not found")
	errKeyRequired    = errors.New("UPS_INV_KEY_SIZE: key required")
)

// normalize maps a pebble error to a generic db error for the given command.
func normalize(cmd string, err error) error {
	if err == nil {
		return nil
	}
	kind := db.KindEngineError
	switch {
	case errors.Is(err, pebble.ErrNotFound), errors.Is(err, errKeyNotFound):
		kind = db.KindNotFound
	case errors.Is(err, errKeyRequired):
		kind = db.KindInvalidArgument
	case errors.Is(err, pebble.ErrClosed):
		kind = db.KindNotConnected
	}
	return db.WrapError(kind, cmd, err)
}
