package engines

import (
	"fmt"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/lmdb"
	"github.com/ValentinKolb/eKV/lib/db/engines/memory"
	"github.com/ValentinKolb/eKV/lib/db/engines/upscaledb"
)

// opener opens the native engine of one backend
type opener struct {
	open func(db.Config) (db.Engine, error)
	test func(db.Config) error
}

var openers = map[db.Implementation]opener{
	db.ImplLMDB:      {open: lmdb.Open, test: lmdb.TestConnection},
	db.ImplUpscaleDB: {open: upscaledb.Open, test: upscaledb.TestConnection},
	db.ImplMemory:    {open: memory.Open, test: memory.TestConnection},
}

func lookup(config db.Config) (opener, error) {
	o, ok := openers[config.Backend]
	if !ok {
		return opener{}, db.NewError(db.KindInvalidArgument, "",
			fmt.Sprintf("unknown backend %q (supported: %v)", config.Backend, db.Implementations))
	}
	return o, nil
}

// Open opens the environment described by config and returns a connection
// on the configured initial namespace.
func Open(config db.Config) (db.KVDB, error) {
	config = config.WithDefaults()
	o, err := lookup(config)
	if err != nil {
		return nil, err
	}
	engine, err := o.open(config)
	if err != nil {
		return nil, err
	}
	return db.NewConnection(engine, config), nil
}

// TestConnection opens and closes the environment without keeping it.
func TestConnection(config db.Config) error {
	config = config.WithDefaults()
	o, err := lookup(config)
	if err != nil {
		return err
	}
	return o.test(config)
}
