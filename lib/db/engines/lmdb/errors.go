package lmdb

import (
	"errors"

	"github.com/ValentinKolb/eKV/lib/db"
	bolt "go.etcd.io/bbolt"
)

// errNamespaceLimit mirrors MDB_DBS_FULL.
var errNamespaceLimit = errors.New("namespace limit reached")

// normalize maps a bbolt error to a generic db error for the given command.
func normalize(cmd string, err error) error {
	if err == nil {
		return nil
	}
	kind := db.KindEngineError
	switch {
	case errors.Is(err, bolt.ErrKeyRequired),
		errors.Is(err, bolt.ErrKeyTooLarge),
		errors.Is(err, bolt.ErrValueTooLarge),
		errors.Is(err, bolt.ErrBucketNameRequired),
		errors.Is(err, bolt.ErrIncompatibleValue):
		kind = db.KindInvalidArgument
	case errors.Is(err, bolt.ErrBucketNotFound):
		kind = db.KindNotFound
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		kind = db.KindNotConnected
	}
	return db.WrapError(kind, cmd, err)
}
