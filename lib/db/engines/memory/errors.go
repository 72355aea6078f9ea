package memory

import (
	"errors"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/memory/internal"
)

var (
	errReadOnly       = errors.New("environment is read-only")
	errNamespaceLimit = errors.New("namespace limit reached")
	errKeyNotFound    = errors.New("key not found")
	errKeyRequired    = errors.New("key required")
	errNameRequired   = errors.New("namespace name required")
	errNoNamespace    = errors.New("namespace not found")
)

// normalize maps an engine error to a generic db error for the given command.
func normalize(cmd string, err error) error {
	if err == nil {
		return nil
	}
	kind := db.KindEngineError
	switch {
	case errors.Is(err, errKeyNotFound), errors.Is(err, errNoNamespace):
		kind = db.KindNotFound
	case errors.Is(err, errKeyRequired), errors.Is(err, errNameRequired):
		kind = db.KindInvalidArgument
	case errors.Is(err, errReadOnly), errors.Is(err, errNamespaceLimit), errors.Is(err, internal.ErrConflict):
		kind = db.KindEngineError
	}
	return db.WrapError(kind, cmd, err)
}
