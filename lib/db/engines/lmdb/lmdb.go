package lmdb

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
	bolt "go.etcd.io/bbolt"
)

// Logger is the logger of the lmdb engine
var Logger = logger.GetLogger("engine/lmdb")

const (
	// dataFileName is the data file inside an environment directory
	dataFileName = "data.mdb"
	// lockTimeout bounds the wait for the file lock held by another process
	lockTimeout = time.Second
	fileMode    = 0o600
)

// lmdbImpl is an LMDB style environment on bbolt. Buckets are the named
// sub-databases, every operation runs in its own explicit transaction.
type lmdbImpl struct {
	env    *bolt.DB
	config db.Config

	// dbi is the name of the active bucket, nil once closed
	dbi []byte
	// curNs is the cached label compared by the lazy Select
	curNs string
	// switches counts namespace switches that actually touched storage
	switches int
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Open validates the path, opens the environment and selects the initial
// namespace (config.Namespace). Everything built so far is released on failure.
func Open(config db.Config) (db.Engine, error) {
	config = config.WithDefaults()
	config.Backend = db.ImplLMDB

	file, err := dataFile(config)
	if err != nil {
		return nil, db.OpenError(err)
	}

	env, err := bolt.Open(file, fileMode, &bolt.Options{
		Timeout:  lockTimeout,
		ReadOnly: config.ReadOnly(),
		NoSync:   config.EnvFlags.Has(db.EnvNoSync),
	})
	if err != nil {
		return nil, db.OpenError(err)
	}

	impl := &lmdbImpl{
		env:    env,
		config: config,
	}
	if err := impl.Select(config.Namespace); err != nil {
		_ = env.Close()
		return nil, db.OpenError(err)
	}

	Logger.Infof("opened %s (namespace %s, flags %s)", file, config.Namespace, config.EnvFlags)
	return impl, nil
}

// TestConnection opens and immediately closes an environment.
func TestConnection(config db.Config) error {
	engine, err := Open(config)
	if err != nil {
		return err
	}
	return engine.Close()
}

// dataFile resolves the data file of the environment and checks the path kind.
// Without EnvNoSubdir the path is a directory holding data.mdb, with it the
// path is the data file itself.
func dataFile(config db.Config) (string, error) {
	if config.Path == "" {
		return "", db.NewError(db.KindPathError, "", "empty database path")
	}
	kind, err := util.StatPath(config.Path)
	if err != nil {
		return "", err
	}

	if config.EnvFlags.Has(db.EnvNoSubdir) {
		if kind == util.PathDir {
			return "", db.NewError(db.KindPathError, "", fmt.Sprintf("invalid input path(%s): expected a file", config.Path))
		}
		if err := util.ParentIsDir(config.Path); err != nil {
			return "", db.NewError(db.KindPathError, "", err.Error())
		}
		if kind == util.PathMissing && !config.CreateIfMissing() {
			return "", fmt.Errorf("%s: no such file", config.Path)
		}
		return config.Path, nil
	}

	switch kind {
	case util.PathFile:
		return "", db.NewError(db.KindPathError, "", fmt.Sprintf("invalid input path(%s): expected a directory", config.Path))
	case util.PathMissing:
		if !config.CreateIfMissing() || config.ReadOnly() {
			return "", fmt.Errorf("%s: no such directory", config.Path)
		}
		if err := os.MkdirAll(config.Path, 0o755); err != nil {
			return "", err
		}
	}
	return filepath.Join(config.Path, dataFileName), nil
}

// Close releases the namespace descriptor, then the environment.
func (l *lmdbImpl) Close() error {
	if l.env == nil {
		return nil
	}
	l.dbi = nil
	env := l.env
	l.env = nil
	if err := env.Close(); err != nil {
		return normalize("", err)
	}
	Logger.Debugf("closed %s", env.Path())
	return nil
}

func (l *lmdbImpl) IsConnected() bool {
	return l.env != nil
}

func (l *lmdbImpl) CurrentNamespace() string {
	if l.env == nil {
		panic("lmdb: CurrentNamespace called on a closed environment")
	}
	return l.curNs
}

// --------------------------------------------------------------------------
// Namespace Selection
// --------------------------------------------------------------------------

// Select opens (or creates) the bucket in one transaction. Only after the
// commit succeeded the previous descriptor is dropped and the label updated.
func (l *lmdbImpl) Select(name string) error {
	if l.env == nil {
		return db.NotConnectedError("SELECT")
	}
	if l.dbi != nil && name == l.curNs {
		return nil
	}

	readOnly := l.config.ReadOnly()
	tx, err := l.env.Begin(!readOnly)
	if err != nil {
		return normalize("SELECT", err)
	}

	if err := l.openBucket(tx, []byte(name), readOnly); err != nil {
		_ = tx.Rollback()
		return normalize("SELECT", err)
	}

	if readOnly {
		err = tx.Rollback()
	} else {
		err = tx.Commit()
	}
	if err != nil {
		return normalize("SELECT", err)
	}

	l.dbi = []byte(name)
	l.curNs = name
	l.switches++
	return nil
}

// openBucket opens the bucket, creating it unless the environment is read-only.
// Creation is refused once MaxNamespaces buckets exist.
func (l *lmdbImpl) openBucket(tx *bolt.Tx, name []byte, readOnly bool) error {
	if len(name) == 0 {
		return bolt.ErrBucketNameRequired
	}
	if tx.Bucket(name) != nil {
		return nil
	}
	if readOnly {
		return bolt.ErrBucketNotFound
	}

	var existing uint32
	_ = tx.ForEach(func(_ []byte, _ *bolt.Bucket) error {
		existing++
		return nil
	})
	if existing >= l.config.MaxNamespaces {
		return fmt.Errorf("%w (max %d)", errNamespaceLimit, l.config.MaxNamespaces)
	}

	_, err := tx.CreateBucketIfNotExists(name)
	return err
}

// Databases enumerates all buckets through the root.
func (l *lmdbImpl) Databases() ([]string, error) {
	var names []string
	err := l.view("CONFIG", func(tx *bolt.Tx, _ *bolt.Bucket) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			names = append(names, string(name))
			return nil
		})
	})
	return names, err
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// view runs fn in a read-only transaction on the active bucket.
func (l *lmdbImpl) view(cmd string, fn func(tx *bolt.Tx, b *bolt.Bucket) error) error {
	if l.env == nil {
		return db.NotConnectedError(cmd)
	}
	tx, err := l.env.Begin(false)
	if err != nil {
		return normalize(cmd, err)
	}
	defer func() { _ = tx.Rollback() }()

	b := tx.Bucket(l.dbi)
	if b == nil {
		return normalize(cmd, bolt.ErrBucketNotFound)
	}
	return normalize(cmd, fn(tx, b))
}

// update runs fn in a write transaction on the active bucket. The transaction
// commits if fn returns nil and commit is true, otherwise it aborts.
func (l *lmdbImpl) update(cmd string, fn func(b *bolt.Bucket) (commit bool, err error)) error {
	if l.env == nil {
		return db.NotConnectedError(cmd)
	}
	tx, err := l.env.Begin(true)
	if err != nil {
		return normalize(cmd, err)
	}

	b := tx.Bucket(l.dbi)
	if b == nil {
		_ = tx.Rollback()
		return normalize(cmd, bolt.ErrBucketNotFound)
	}

	commit, err := fn(b)
	if err != nil || !commit {
		_ = tx.Rollback()
		return normalize(cmd, err)
	}
	return normalize(cmd, tx.Commit())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db/db.go)
// --------------------------------------------------------------------------

func (l *lmdbImpl) Set(key, value []byte) error {
	return l.update("SET", func(b *bolt.Bucket) (bool, error) {
		return true, b.Put(key, value)
	})
}

func (l *lmdbImpl) Get(key []byte) ([]byte, error) {
	var value []byte
	err := l.view("GET", func(_ *bolt.Tx, b *bolt.Bucket) error {
		v := b.Get(key)
		if v == nil {
			return db.NewError(db.KindNotFound, "GET", "MDB_NOTFOUND: No matching key/data pair found")
		}
		value = util.CopyBytes(v)
		return nil
	})
	return value, err
}

func (l *lmdbImpl) Delete(key []byte) error {
	return l.update("DEL", func(b *bolt.Bucket) (bool, error) {
		if b.Get(key) == nil {
			return false, db.NewError(db.KindNotFound, "DEL", "MDB_NOTFOUND: No matching key/data pair found")
		}
		return true, b.Delete(key)
	})
}

func (l *lmdbImpl) ForEach(cmd string, fn func(key, value []byte) bool) error {
	return l.view(cmd, func(_ *bolt.Tx, b *bolt.Bucket) error {
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !fn(k, v) {
				break
			}
		}
		return nil
	})
}

// Count reads the key count from the bucket statistics.
func (l *lmdbImpl) Count() (uint64, error) {
	var n uint64
	err := l.view("DBKCOUNT", func(_ *bolt.Tx, b *bolt.Bucket) error {
		n = uint64(b.Stats().KeyN)
		return nil
	})
	return n, err
}

// Flush erases the bucket with a cursor. The transaction only commits if at
// least one key was deleted.
func (l *lmdbImpl) Flush() error {
	return l.update("FLUSHDB", func(b *bolt.Bucket) (bool, error) {
		deleted := 0
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return false, err
			}
			deleted++
		}
		return deleted > 0, nil
	})
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (l *lmdbImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureNamedNamespaces |
		db.FeatureEnumerate |
		db.FeatureNativeCount |
		db.FeatureExplicitTxn |
		db.FeaturePersistent
	return supported&feature == feature
}

func (l *lmdbImpl) GetInfo() db.EngineInfo {
	info := db.EngineInfo{
		DbType:           db.ImplLMDB,
		BasedOn:          "go.etcd.io/bbolt",
		Path:             l.config.Path,
		ReadOnly:         l.config.ReadOnly(),
		CurrentNamespace: l.curNs,
		SupportedFeatures: []db.Feature{
			db.FeatureNamedNamespaces, db.FeatureEnumerate,
			db.FeatureNativeCount, db.FeatureExplicitTxn, db.FeaturePersistent,
		},
	}
	if l.env == nil {
		return info
	}

	stats := l.env.Stats()
	info.Metadata = &struct {
		DataFile      string `json:"data_file"`
		PageSize      int    `json:"page_size"`
		FreePages     int    `json:"free_pages"`
		ReadTxns      int    `json:"read_txns"`
		MaxNamespaces uint32 `json:"max_namespaces"`
	}{
		DataFile:      l.env.Path(),
		PageSize:      l.env.Info().PageSize,
		FreePages:     stats.FreePageN,
		ReadTxns:      stats.TxN,
		MaxNamespaces: l.config.MaxNamespaces,
	}
	return info
}
