package lmdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/eKV/lib/db"
	dbtesting "github.com/ValentinKolb/eKV/lib/db/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"
)

func testConfig(tb testing.TB) db.Config {
	cfg := db.DefaultConfig(db.ImplLMDB, tb.TempDir())
	cfg.EnvFlags |= db.EnvNoSync
	return cfg
}

func openConnection(tb testing.TB) db.KVDB {
	cfg := testConfig(tb)
	engine, err := Open(cfg)
	require.NoError(tb, err)
	return db.NewConnection(engine, cfg)
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "LMDB", openConnection)
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "LMDB", openConnection)
}

// txid returns the id of the last committed write transaction
func txid(t *testing.T, impl *lmdbImpl) int {
	var id int
	require.NoError(t, impl.env.View(func(tx *bolt.Tx) error {
		id = tx.ID()
		return nil
	}))
	return id
}

// TestFlushCommitsOnlyDeletions checks that flushing an empty namespace
// aborts its transaction and a real flush commits exactly one
func TestFlushCommitsOnlyDeletions(t *testing.T) {
	engine, err := Open(testConfig(t))
	require.NoError(t, err)
	defer engine.Close()
	impl := engine.(*lmdbImpl)

	before := txid(t, impl)
	require.NoError(t, engine.Flush())
	assert.Equal(t, before, txid(t, impl))

	require.NoError(t, engine.Set([]byte("k"), []byte("v")))
	before = txid(t, impl)
	require.NoError(t, engine.Flush())
	assert.Equal(t, before+1, txid(t, impl))

	n, err := engine.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLazySelect(t *testing.T) {
	engine, err := Open(testConfig(t))
	require.NoError(t, err)
	defer engine.Close()
	impl := engine.(*lmdbImpl)

	// Open selected the default namespace once
	assert.Equal(t, 1, impl.switches)

	require.NoError(t, impl.Select("users"))
	require.NoError(t, impl.Select("users"))
	assert.Equal(t, 2, impl.switches)

	require.NoError(t, impl.Select(db.DefaultNamespace))
	assert.Equal(t, 3, impl.switches)
}

func TestSelectFailureKeepsNamespace(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxNamespaces = 2
	engine, err := Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Select("second"))
	require.NoError(t, engine.Set([]byte("k"), []byte("v")))

	err = engine.Select("third")
	assert.ErrorIs(t, err, db.ErrEngine)
	assert.Contains(t, err.Error(), "SELECT function error: namespace limit reached")

	// the previous namespace is still active and usable
	assert.Equal(t, "second", engine.CurrentNamespace())
	v, err := engine.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	err = engine.Select("")
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
	assert.Equal(t, "second", engine.CurrentNamespace())
}

func TestDatabases(t *testing.T) {
	engine, err := Open(testConfig(t))
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Select("b"))
	require.NoError(t, engine.Select("a"))

	names, err := engine.Databases()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", db.DefaultNamespace}, names)
}

func TestPersistence(t *testing.T) {
	cfg := testConfig(t)
	engine, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, engine.Select("data"))
	require.NoError(t, engine.Set([]byte("k"), []byte("v")))
	require.NoError(t, engine.Close())

	assert.FileExists(t, filepath.Join(cfg.Path, dataFileName))

	// read-only reopen sees the data but cannot write or create namespaces
	cfg.EnvFlags |= db.EnvReadOnly
	cfg.Namespace = "data"
	engine, err = Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	v, err := engine.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))

	assert.ErrorIs(t, engine.Set([]byte("k2"), []byte("v")), db.ErrEngine)
	assert.ErrorIs(t, engine.Select("missing"), db.ErrNotFound)
	assert.Equal(t, "data", engine.CurrentNamespace())
}

func TestOpenPathChecks(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.mdb")
	require.NoError(t, os.WriteFile(file, nil, 0o600))

	t.Run("FileWithoutNoSubdir", func(t *testing.T) {
		_, err := Open(db.DefaultConfig(db.ImplLMDB, file))
		assert.ErrorIs(t, err, db.ErrPath)
	})

	t.Run("DirWithNoSubdir", func(t *testing.T) {
		cfg := db.DefaultConfig(db.ImplLMDB, dir)
		cfg.EnvFlags |= db.EnvNoSubdir
		_, err := Open(cfg)
		assert.ErrorIs(t, err, db.ErrPath)
	})

	t.Run("MissingWithoutCreate", func(t *testing.T) {
		cfg := db.DefaultConfig(db.ImplLMDB, filepath.Join(dir, "missing"))
		cfg.EnvFlags = 0
		_, err := Open(cfg)
		assert.ErrorIs(t, err, db.ErrEngine)
		assert.Contains(t, err.Error(), "Fail open database")
	})

	t.Run("SingleFile", func(t *testing.T) {
		cfg := db.DefaultConfig(db.ImplLMDB, filepath.Join(dir, "single.mdb"))
		cfg.EnvFlags |= db.EnvNoSubdir
		require.NoError(t, TestConnection(cfg))
		assert.FileExists(t, cfg.Path)
	})

	t.Run("CreatesDirectory", func(t *testing.T) {
		cfg := db.DefaultConfig(db.ImplLMDB, filepath.Join(dir, "nested", "env"))
		require.NoError(t, TestConnection(cfg))
		assert.DirExists(t, cfg.Path)
	})
}

func TestCloseIsIdempotent(t *testing.T) {
	engine, err := Open(testConfig(t))
	require.NoError(t, err)

	require.NoError(t, engine.Close())
	require.NoError(t, engine.Close())
	assert.False(t, engine.IsConnected())
	assert.ErrorIs(t, engine.Set([]byte("k"), []byte("v")), db.ErrNotConnected)
	assert.Panics(t, func() { engine.CurrentNamespace() })
}
