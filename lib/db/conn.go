package db

import (
	"errors"
	"fmt"

	"github.com/ValentinKolb/eKV/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the db package
var Logger = logger.GetLogger("db")

// infoSampleSize bounds the walk INFO performs to estimate entry sizes.
const infoSampleSize = 100

// Connection implements KVDB on top of any Engine. It adds the operations
// every backend shares (rename, multi delete, SCAN, KEYS, TTL) and turns a
// closed engine into NotConnected errors.
//
// Thread-safety: Connection is not safe for concurrent use, like the engine it wraps.
type Connection struct {
	engine Engine
	config Config
	closed bool
}

// NewConnection wraps an open engine. The config is the one the engine was opened with.
func NewConnection(engine Engine, config Config) *Connection {
	return &Connection{
		engine: engine,
		config: config,
	}
}

// check fails with NotConnected once the connection or the engine is closed.
func (c *Connection) check(cmd string) error {
	if c.closed || c.engine == nil || !c.engine.IsConnected() {
		return NotConnectedError(cmd)
	}
	return nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db.go)
// --------------------------------------------------------------------------

func (c *Connection) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.engine == nil {
		return nil
	}
	return c.engine.Close()
}

func (c *Connection) IsConnected() bool {
	return c.check("") == nil
}

// CurrentNamespace panics on a closed connection.
func (c *Connection) CurrentNamespace() string {
	if c.closed {
		panic("db: CurrentNamespace called on a closed connection")
	}
	return c.engine.CurrentNamespace()
}

func (c *Connection) Backend() Implementation {
	return c.config.Backend
}

func (c *Connection) Config() Config {
	return c.config
}

func (c *Connection) Info() (EngineInfo, error) {
	if err := c.check("INFO"); err != nil {
		return EngineInfo{}, err
	}
	info := c.engine.GetInfo()
	sample, err := util.SampleNamespace(c.walker("INFO"), infoSampleSize)
	if err != nil {
		return info, err
	}
	info.Metadata = struct {
		Engine interface{}      `json:"engine,omitempty"`
		Sample util.SampleStats `json:"sample"`
	}{
		Engine: info.Metadata,
		Sample: sample,
	}
	return info, nil
}

// Select switches the namespace and reports its key count.
func (c *Connection) Select(name string) (DatabaseInfo, error) {
	if err := c.check("SELECT"); err != nil {
		return DatabaseInfo{}, err
	}
	if err := c.engine.Select(name); err != nil {
		return DatabaseInfo{}, WrapError(KindEngineError, "SELECT", err)
	}
	count, err := c.engine.Count()
	if err != nil {
		return DatabaseInfo{}, WrapError(KindEngineError, "SELECT", err)
	}
	Logger.Debugf("selected namespace %s (%d keys)", name, count)
	return DatabaseInfo{
		Name:      c.engine.CurrentNamespace(),
		IsDefault: true,
		KeyCount:  count,
	}, nil
}

func (c *Connection) ConfigGetDatabases() ([]string, error) {
	if err := c.check("CONFIG"); err != nil {
		return nil, err
	}
	return c.engine.Databases()
}

func (c *Connection) Set(key, value []byte) error {
	if err := c.check("SET"); err != nil {
		return err
	}
	return c.engine.Set(key, value)
}

func (c *Connection) Get(key []byte) ([]byte, error) {
	if err := c.check("GET"); err != nil {
		return nil, err
	}
	return c.engine.Get(key)
}

func (c *Connection) Delete(key []byte) error {
	if err := c.check("DEL"); err != nil {
		return err
	}
	return c.engine.Delete(key)
}

// DeleteMany deletes each key on its own and returns the keys that were
// actually removed, in input order. Failures are logged and skipped.
func (c *Connection) DeleteMany(keys [][]byte) [][]byte {
	deleted := make([][]byte, 0, len(keys))
	if c.check("DEL") != nil {
		return deleted
	}
	for _, key := range keys {
		if err := c.engine.Delete(key); err != nil {
			if !errors.Is(err, ErrNotFound) {
				Logger.Warningf("skipping key %q: %v", key, err)
			}
			continue
		}
		deleted = append(deleted, key)
	}
	return deleted
}

// Rename moves a value with three separate transactions (get, delete, set).
// It is not atomic: if the final set fails the value is gone.
func (c *Connection) Rename(key, newKey []byte) error {
	if err := c.check("RENAME"); err != nil {
		return err
	}
	value, err := c.engine.Get(key)
	if err != nil {
		return WrapError(KindEngineError, "RENAME", err)
	}
	if err := c.engine.Delete(key); err != nil {
		return WrapError(KindEngineError, "RENAME", err)
	}
	if err := c.engine.Set(newKey, value); err != nil {
		Logger.Errorf("rename %q -> %q lost the value: %v", key, newKey, err)
		return WrapError(KindEngineError, "RENAME", err)
	}
	return nil
}

func (c *Connection) GetTTL(key []byte) (int64, error) {
	if err := c.check("TTL"); err != nil {
		return 0, err
	}
	return 0, c.ttlNotSupported("TTL")
}

func (c *Connection) SetTTL(key []byte, seconds int64) error {
	if err := c.check("EXPIRE"); err != nil {
		return err
	}
	return c.ttlNotSupported("EXPIRE")
}

func (c *Connection) ttlNotSupported(cmd string) error {
	return NewError(KindNotSupported, cmd,
		fmt.Sprintf("Sorry, but now eKV for %s not supported TTL commands.", c.config.Backend))
}

func (c *Connection) Scan(cursor uint64, pattern string, count uint64) ([][]byte, uint64, error) {
	if err := c.check("SCAN"); err != nil {
		return nil, 0, err
	}
	keys, next, err := util.ScanPage(c.walker("SCAN"), cursor, pattern, count)
	if err != nil {
		return nil, 0, WrapError(KindInvalidArgument, "SCAN", err)
	}
	return keys, next, nil
}

func (c *Connection) Keys(start, end []byte, limit uint64) ([][]byte, error) {
	if err := c.check("KEYS"); err != nil {
		return nil, err
	}
	return util.RangeKeys(c.walker("KEYS"), start, end, limit)
}

func (c *Connection) DBKCount() (uint64, error) {
	if err := c.check("DBKCOUNT"); err != nil {
		return 0, err
	}
	return c.engine.Count()
}

func (c *Connection) FlushDB() error {
	if err := c.check("FLUSHDB"); err != nil {
		return err
	}
	return c.engine.Flush()
}

// walker binds the engine cursor walk to a command name.
func (c *Connection) walker(cmd string) util.Walker {
	return func(fn func(key, value []byte) bool) error {
		return c.engine.ForEach(cmd, fn)
	}
}
