package upscaledb

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/util"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the upscaledb engine
var Logger = logger.GetLogger("engine/upscaledb")

// catalogID is the reserved database id whose keys record the created databases.
const catalogID uint16 = 0

// upscaleImpl is an UpscaleDB style environment on pebble. Databases are
// numbered; each one owns the keys starting with its big-endian 2-byte id.
// Writes are engine-managed: a single Set or a committed batch.
type upscaleImpl struct {
	env    *pebble.DB
	config db.Config
	wopts  *pebble.WriteOptions

	// dbi is the active database id, valid while env != nil
	dbi uint16
	// curNs is the cached label compared by the lazy Select
	curNs string
	// switches counts namespace switches that actually touched storage
	switches int
}

// --------------------------------------------------------------------------
// Key Layout
// --------------------------------------------------------------------------

func prefix(id uint16) []byte {
	p := make([]byte, 2)
	binary.BigEndian.PutUint16(p, id)
	return p
}

func dataKey(id uint16, key []byte) []byte {
	k := make([]byte, 2+len(key))
	binary.BigEndian.PutUint16(k, id)
	copy(k[2:], key)
	return k
}

func catalogKey(id uint16) []byte {
	return dataKey(catalogID, prefix(id))
}

// bounds returns the iterator bounds covering every key of the database.
func bounds(id uint16) *pebble.IterOptions {
	opts := &pebble.IterOptions{LowerBound: prefix(id)}
	if id < ^uint16(0) {
		opts.UpperBound = prefix(id + 1)
	}
	return opts
}

// parseID parses a namespace label into a database id.
func parseID(name string) (uint16, error) {
	id, err := strconv.ParseUint(name, 10, 16)
	if err != nil {
		return 0, db.NewError(db.KindInvalidArgument, "SELECT", fmt.Sprintf("invalid database number %q", name))
	}
	if uint16(id) == catalogID {
		return 0, db.NewError(db.KindInvalidArgument, "SELECT", "database 0 is reserved")
	}
	return uint16(id), nil
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Open checks the path, opens the pebble store and selects config.DBNum.
// Everything built so far is released on failure.
func Open(config db.Config) (db.Engine, error) {
	config = config.WithDefaults()
	config.Backend = db.ImplUpscaleDB

	if err := checkPath(config.Path); err != nil {
		return nil, db.OpenError(err)
	}

	env, err := pebble.Open(config.Path, &pebble.Options{
		ErrorIfNotExists: !config.CreateIfMissing(),
		ReadOnly:         config.ReadOnly(),
		Logger:           pebbleLogger{},
	})
	if err != nil {
		return nil, db.OpenError(err)
	}

	impl := &upscaleImpl{
		env:    env,
		config: config,
		wopts:  pebble.Sync,
	}
	if config.EnvFlags.Has(db.EnvNoSync) {
		impl.wopts = pebble.NoSync
	}

	if err := impl.Select(config.InitialNamespace()); err != nil {
		_ = env.Close()
		return nil, db.OpenError(err)
	}

	Logger.Infof("opened %s (database %d, flags %s)", config.Path, config.DBNum, config.EnvFlags)
	return impl, nil
}

// TestConnection opens and immediately closes a store.
func TestConnection(config db.Config) error {
	engine, err := Open(config)
	if err != nil {
		return err
	}
	return engine.Close()
}

// checkPath requires the parent folder to be a directory and an existing
// path to be a store directory.
func checkPath(path string) error {
	if path == "" {
		return db.NewError(db.KindPathError, "", "empty database path")
	}
	if err := util.ParentIsDir(path); err != nil {
		return db.NewError(db.KindPathError, "", err.Error())
	}
	kind, err := util.StatPath(path)
	if err != nil {
		return err
	}
	if kind == util.PathFile {
		return db.NewError(db.KindPathError, "", fmt.Sprintf("invalid input path(%s): expected a store directory", path))
	}
	return nil
}

// Close releases the database handle, then the environment.
func (u *upscaleImpl) Close() error {
	if u.env == nil {
		return nil
	}
	u.dbi = 0
	env := u.env
	u.env = nil
	if err := env.Close(); err != nil {
		return normalize("", err)
	}
	Logger.Debugf("closed %s", u.config.Path)
	return nil
}

func (u *upscaleImpl) IsConnected() bool {
	return u.env != nil
}

func (u *upscaleImpl) CurrentNamespace() string {
	if u.env == nil {
		panic("upscaledb: CurrentNamespace called on a closed environment")
	}
	return u.curNs
}

// --------------------------------------------------------------------------
// Namespace Selection
// --------------------------------------------------------------------------

// Select opens or creates the numbered database. Creation is one committed
// batch on the catalog; the active id only changes after it succeeded.
func (u *upscaleImpl) Select(name string) error {
	if u.env == nil {
		return db.NotConnectedError("SELECT")
	}
	id, err := parseID(name)
	if err != nil {
		return err
	}
	if u.dbi != 0 && id == u.dbi {
		return nil
	}

	exists, err := u.known(id)
	if err != nil {
		return normalize("SELECT", err)
	}
	if !exists {
		if u.config.ReadOnly() {
			return db.NewError(db.KindNotFound, "SELECT", fmt.Sprintf("UPS_DATABASE_NOT_FOUND: database %d", id))
		}
		if err := u.create(id); err != nil {
			return normalize("SELECT", err)
		}
	}

	u.dbi = id
	u.curNs = strconv.FormatUint(uint64(id), 10)
	u.switches++
	return nil
}

// known reports whether the catalog lists the database id.
func (u *upscaleImpl) known(id uint16) (bool, error) {
	_, closer, err := u.env.Get(catalogKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, closer.Close()
}

// create records a new database id in the catalog, bounded by MaxNamespaces.
func (u *upscaleImpl) create(id uint16) error {
	ids, err := u.catalog()
	if err != nil {
		return err
	}
	if uint32(len(ids)) >= u.config.MaxNamespaces {
		return fmt.Errorf("%w (max %d)", errNamespaceLimit, u.config.MaxNamespaces)
	}

	batch := u.env.NewBatch()
	defer batch.Close()
	if err := batch.Set(catalogKey(id), nil, nil); err != nil {
		return err
	}
	return batch.Commit(u.wopts)
}

// catalog lists all created database ids in ascending order.
func (u *upscaleImpl) catalog() ([]uint16, error) {
	iter, err := u.env.NewIter(bounds(catalogID))
	if err != nil {
		return nil, err
	}
	var ids []uint16
	for iter.First(); iter.Valid(); iter.Next() {
		ids = append(ids, binary.BigEndian.Uint16(iter.Key()[2:]))
	}
	return ids, errors.Join(iter.Error(), iter.Close())
}

// Databases reports the active database only: numbered databases have no
// names to enumerate.
func (u *upscaleImpl) Databases() ([]string, error) {
	if u.env == nil {
		return nil, db.NotConnectedError("CONFIG")
	}
	return []string{u.curNs}, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db/db.go)
// --------------------------------------------------------------------------

func (u *upscaleImpl) Set(key, value []byte) error {
	if u.env == nil {
		return db.NotConnectedError("SET")
	}
	if len(key) == 0 {
		return normalize("SET", errKeyRequired)
	}
	return normalize("SET", u.env.Set(dataKey(u.dbi, key), value, u.wopts))
}

func (u *upscaleImpl) Get(key []byte) ([]byte, error) {
	if u.env == nil {
		return nil, db.NotConnectedError("GET")
	}
	value, closer, err := u.env.Get(dataKey(u.dbi, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, normalize("GET", errKeyNotFound)
	}
	if err != nil {
		return nil, normalize("GET", err)
	}
	defer closer.Close()
	return util.CopyBytes(value), nil
}

// Delete checks and erases the key inside one indexed batch.
func (u *upscaleImpl) Delete(key []byte) error {
	if u.env == nil {
		return db.NotConnectedError("DEL")
	}
	batch := u.env.NewIndexedBatch()
	defer batch.Close()

	k := dataKey(u.dbi, key)
	_, closer, err := batch.Get(k)
	if errors.Is(err, pebble.ErrNotFound) {
		return normalize("DEL", errKeyNotFound)
	}
	if err != nil {
		return normalize("DEL", err)
	}
	_ = closer.Close()

	if err := batch.Delete(k, nil); err != nil {
		return normalize("DEL", err)
	}
	return normalize("DEL", batch.Commit(u.wopts))
}

func (u *upscaleImpl) ForEach(cmd string, fn func(key, value []byte) bool) error {
	if u.env == nil {
		return db.NotConnectedError(cmd)
	}
	iter, err := u.env.NewIter(bounds(u.dbi))
	if err != nil {
		return normalize(cmd, err)
	}
	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(iter.Key()[2:], iter.Value()) {
			break
		}
	}
	return normalize(cmd, errors.Join(iter.Error(), iter.Close()))
}

// Count walks the database with a cursor, pebble keeps no per-prefix counts.
func (u *upscaleImpl) Count() (uint64, error) {
	var n uint64
	err := u.ForEach("DBKCOUNT", func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// Flush erases every key of the database in one batch. The batch is only
// committed if it holds at least one deletion.
func (u *upscaleImpl) Flush() error {
	if u.env == nil {
		return db.NotConnectedError("FLUSHDB")
	}
	batch := u.env.NewBatch()
	defer batch.Close()

	var (
		deleted  int
		batchErr error
	)
	err := u.ForEach("FLUSHDB", func(key, _ []byte) bool {
		if batchErr = batch.Delete(dataKey(u.dbi, key), nil); batchErr != nil {
			return false
		}
		deleted++
		return true
	})
	if err != nil {
		return err
	}
	if batchErr != nil {
		return normalize("FLUSHDB", batchErr)
	}
	if deleted == 0 {
		return nil
	}
	return normalize("FLUSHDB", batch.Commit(u.wopts))
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (u *upscaleImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureNumericNamespaces | db.FeaturePersistent
	return supported&feature == feature
}

func (u *upscaleImpl) GetInfo() db.EngineInfo {
	info := db.EngineInfo{
		DbType:            db.ImplUpscaleDB,
		BasedOn:           "github.com/cockroachdb/pebble",
		Path:              u.config.Path,
		ReadOnly:          u.config.ReadOnly(),
		CurrentNamespace:  u.curNs,
		SupportedFeatures: []db.Feature{db.FeatureNumericNamespaces, db.FeaturePersistent},
	}
	if u.env == nil {
		return info
	}

	metrics := u.env.Metrics()
	ids, err := u.catalog()
	if err != nil {
		Logger.Warningf("failed to read the database catalog: %v", err)
	}
	info.Metadata = &struct {
		Databases      []uint16 `json:"databases"`
		DiskSpaceUsage uint64   `json:"disk_space_usage"`
		ReadAmp        int      `json:"read_amp"`
		Compactions    int64    `json:"compactions"`
		Flushes        int64    `json:"flushes"`
	}{
		Databases:      ids,
		DiskSpaceUsage: metrics.DiskSpaceUsage(),
		ReadAmp:        metrics.ReadAmp(),
		Compactions:    metrics.Compact.Count,
		Flushes:        metrics.Flush.Count,
	}
	return info
}

// --------------------------------------------------------------------------
// Logging
// --------------------------------------------------------------------------

// pebbleLogger routes pebble's own log output through the engine logger.
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
