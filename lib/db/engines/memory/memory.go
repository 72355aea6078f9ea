package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines/memory/internal"
	"github.com/ValentinKolb/eKV/lib/db/util"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

// Logger is the logger of the memory engine
var Logger = logger.GetLogger("engine/memory")

// memoryImpl keeps every namespace in an ordered B-tree. Writes run in
// copy-on-write transactions, the key count is the tree size. With a path the
// namespaces are loaded on open and written back on close.
type memoryImpl struct {
	config   db.Config
	registry *xsync.MapOf[string, *internal.Namespace]
	open     bool

	// dbi is the active namespace, nil once closed
	dbi *internal.Namespace
	// curNs is the cached label compared by the lazy Select
	curNs string
	// switches counts namespace switches that actually touched the registry
	switches int
}

// --------------------------------------------------------------------------
// Lifecycle
// --------------------------------------------------------------------------

// Open creates the environment, loads the snapshot if config.Path names an
// existing file and selects config.Namespace.
func Open(config db.Config) (db.Engine, error) {
	config = config.WithDefaults()
	config.Backend = db.ImplMemory

	impl := &memoryImpl{
		config:   config,
		registry: xsync.NewMapOf[string, *internal.Namespace](),
		open:     true,
	}

	if config.Path != "" {
		if err := impl.load(); err != nil {
			return nil, db.OpenError(err)
		}
	}

	if err := impl.Select(config.Namespace); err != nil {
		impl.release()
		return nil, db.OpenError(err)
	}

	Logger.Infof("opened memory environment (snapshot %q, namespace %s)", config.Path, config.Namespace)
	return impl, nil
}

// TestConnection validates the configuration and reads the snapshot if one
// exists. It never writes a snapshot.
func TestConnection(config db.Config) error {
	config = config.WithDefaults()
	if config.Path == "" {
		return nil
	}
	impl := &memoryImpl{
		config:   config,
		registry: xsync.NewMapOf[string, *internal.Namespace](),
		open:     true,
	}
	defer impl.release()
	if err := impl.load(); err != nil {
		return db.OpenError(err)
	}
	return nil
}

// checkSnapshotPath validates the snapshot path without reading it.
func checkSnapshotPath(config db.Config) error {
	kind, err := util.StatPath(config.Path)
	if err != nil {
		return err
	}
	if kind == util.PathDir {
		return db.NewError(db.KindPathError, "", fmt.Sprintf("invalid input path(%s): expected a snapshot file", config.Path))
	}
	if err := util.ParentIsDir(config.Path); err != nil {
		return db.NewError(db.KindPathError, "", err.Error())
	}
	if kind == util.PathMissing && (!config.CreateIfMissing() || config.ReadOnly()) {
		return fmt.Errorf("%s: no such file", config.Path)
	}
	return nil
}

// load restores the snapshot file into the registry.
func (m *memoryImpl) load() error {
	if err := checkSnapshotPath(m.config); err != nil {
		return err
	}
	f, err := os.Open(m.config.Path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	namespaces, err := internal.ReadSnapshot(f)
	if err != nil {
		return fmt.Errorf("read snapshot %s: %w", m.config.Path, err)
	}
	for _, ns := range namespaces {
		m.registry.Store(ns.Name, internal.NewNamespace(ns.Tree))
	}
	Logger.Debugf("loaded %d namespaces from %s", len(namespaces), m.config.Path)
	return nil
}

// save writes all namespaces to a temporary file and renames it over the snapshot.
func (m *memoryImpl) save() error {
	names := m.namespaceNames()
	trees := make([]internal.NamedTree, 0, len(names))
	for _, name := range names {
		if ns, ok := m.registry.Load(name); ok {
			trees = append(trees, internal.NamedTree{Name: name, Tree: ns.Tree()})
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(m.config.Path), filepath.Base(m.config.Path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := internal.WriteSnapshot(tmp, trees); err != nil {
		_ = tmp.Close()
		return err
	}
	if !m.config.EnvFlags.Has(db.EnvNoSync) {
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), m.config.Path)
}

// release drops the namespace descriptor, then the environment.
func (m *memoryImpl) release() {
	m.dbi = nil
	m.registry.Clear()
	m.open = false
}

// Close writes the snapshot (if a path is configured and the environment is
// writable) and releases everything. The environment is released even if the
// snapshot fails.
func (m *memoryImpl) Close() error {
	if !m.open {
		return nil
	}
	var err error
	if m.config.Path != "" && !m.config.ReadOnly() {
		err = m.save()
	}
	m.release()
	if err != nil {
		return normalize("", fmt.Errorf("write snapshot %s: %w", m.config.Path, err))
	}
	return nil
}

func (m *memoryImpl) IsConnected() bool {
	return m.open
}

func (m *memoryImpl) CurrentNamespace() string {
	if !m.open {
		panic("memory: CurrentNamespace called on a closed environment")
	}
	return m.curNs
}

// --------------------------------------------------------------------------
// Namespace Selection
// --------------------------------------------------------------------------

func (m *memoryImpl) Select(name string) error {
	if !m.open {
		return db.NotConnectedError("SELECT")
	}
	if m.dbi != nil && name == m.curNs {
		return nil
	}
	if name == "" {
		return normalize("SELECT", errNameRequired)
	}

	ns, ok := m.registry.Load(name)
	if !ok {
		if m.config.ReadOnly() {
			return normalize("SELECT", fmt.Errorf("%w: %s", errNoNamespace, name))
		}
		if uint32(m.registry.Size()) >= m.config.MaxNamespaces {
			return normalize("SELECT", fmt.Errorf("%w (max %d)", errNamespaceLimit, m.config.MaxNamespaces))
		}
		ns, _ = m.registry.LoadOrCompute(name, func() *internal.Namespace {
			return internal.NewNamespace(nil)
		})
	}

	m.dbi = ns
	m.curNs = name
	m.switches++
	return nil
}

// namespaceNames returns the registry keys in ascending order.
func (m *memoryImpl) namespaceNames() []string {
	names := make([]string, 0, m.registry.Size())
	m.registry.Range(func(name string, _ *internal.Namespace) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}

func (m *memoryImpl) Databases() ([]string, error) {
	if !m.open {
		return nil, db.NotConnectedError("CONFIG")
	}
	return m.namespaceNames(), nil
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// update runs fn in a write transaction on the active namespace. The
// transaction commits if fn returns nil and commit is true, otherwise it aborts.
func (m *memoryImpl) update(cmd string, fn func(txn *internal.Txn) (commit bool, err error)) error {
	if !m.open {
		return db.NotConnectedError(cmd)
	}
	if m.config.ReadOnly() {
		return normalize(cmd, errReadOnly)
	}
	txn := m.dbi.Begin()
	commit, err := fn(txn)
	if err != nil || !commit {
		txn.Abort()
		return normalize(cmd, err)
	}
	return normalize(cmd, txn.Commit())
}

// --------------------------------------------------------------------------
// Interface Methods (docu see db/db.go)
// --------------------------------------------------------------------------

func (m *memoryImpl) Set(key, value []byte) error {
	return m.update("SET", func(txn *internal.Txn) (bool, error) {
		if len(key) == 0 {
			return false, errKeyRequired
		}
		txn.Put(util.CopyBytes(key), util.CopyBytes(value))
		return true, nil
	})
}

func (m *memoryImpl) Get(key []byte) ([]byte, error) {
	if !m.open {
		return nil, db.NotConnectedError("GET")
	}
	item, ok := m.dbi.Tree().Get(internal.Item{Key: key})
	if !ok {
		return nil, normalize("GET", errKeyNotFound)
	}
	return util.CopyBytes(item.Value), nil
}

func (m *memoryImpl) Delete(key []byte) error {
	return m.update("DEL", func(txn *internal.Txn) (bool, error) {
		if !txn.Delete(key) {
			return false, errKeyNotFound
		}
		return true, nil
	})
}

// ForEach walks the committed tree. Items are immutable, so the walk is a
// consistent snapshot without copying.
func (m *memoryImpl) ForEach(cmd string, fn func(key, value []byte) bool) error {
	if !m.open {
		return db.NotConnectedError(cmd)
	}
	m.dbi.Tree().Ascend(func(item internal.Item) bool {
		return fn(item.Key, item.Value)
	})
	return nil
}

// Count is the tree size.
func (m *memoryImpl) Count() (uint64, error) {
	if !m.open {
		return 0, db.NotConnectedError("DBKCOUNT")
	}
	return uint64(m.dbi.Len()), nil
}

// Flush deletes every key in one transaction, committing only if at least
// one key was removed.
func (m *memoryImpl) Flush() error {
	return m.update("FLUSHDB", func(txn *internal.Txn) (bool, error) {
		if txn.Tree().Len() == 0 {
			return false, nil
		}
		txn.Tree().Clear(false)
		return true, nil
	})
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

func (m *memoryImpl) SupportsFeature(feature db.Feature) bool {
	supported := db.FeatureNamedNamespaces |
		db.FeatureEnumerate |
		db.FeatureNativeCount |
		db.FeatureExplicitTxn
	if m.config.Path != "" {
		supported |= db.FeaturePersistent
	}
	return supported&feature == feature
}

func (m *memoryImpl) GetInfo() db.EngineInfo {
	features := []db.Feature{
		db.FeatureNamedNamespaces, db.FeatureEnumerate,
		db.FeatureNativeCount, db.FeatureExplicitTxn,
	}
	if m.config.Path != "" {
		features = append(features, db.FeaturePersistent)
	}

	info := db.EngineInfo{
		DbType:            db.ImplMemory,
		BasedOn:           "github.com/google/btree",
		Path:              m.config.Path,
		ReadOnly:          m.config.ReadOnly(),
		CurrentNamespace:  m.curNs,
		SupportedFeatures: features,
	}
	if !m.open {
		return info
	}

	sizes := make(map[string]int, m.registry.Size())
	m.registry.Range(func(name string, ns *internal.Namespace) bool {
		sizes[name] = ns.Len()
		return true
	})
	info.Metadata = &struct {
		Namespaces    map[string]int `json:"namespaces"`
		MaxNamespaces uint32         `json:"max_namespaces"`
		Snapshot      string         `json:"snapshot,omitempty"`
	}{
		Namespaces:    sizes,
		MaxNamespaces: m.config.MaxNamespaces,
		Snapshot:      m.config.Path,
	}
	return info
}
