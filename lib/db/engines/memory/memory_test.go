package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/eKV/lib/db"
	dbtesting "github.com/ValentinKolb/eKV/lib/db/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openConnection(tb testing.TB) db.KVDB {
	cfg := db.DefaultConfig(db.ImplMemory, "")
	engine, err := Open(cfg)
	require.NoError(tb, err)
	return db.NewConnection(engine, cfg)
}

func openPersistentConnection(tb testing.TB) db.KVDB {
	cfg := db.DefaultConfig(db.ImplMemory, filepath.Join(tb.TempDir(), "snapshot.ekv"))
	cfg.EnvFlags |= db.EnvNoSync
	engine, err := Open(cfg)
	require.NoError(tb, err)
	return db.NewConnection(engine, cfg)
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "Memory", openConnection)
	dbtesting.RunKVDBTests(t, "MemorySnapshot", openPersistentConnection)
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "Memory", openConnection)
}

func TestLazySelect(t *testing.T) {
	engine, err := Open(db.DefaultConfig(db.ImplMemory, ""))
	require.NoError(t, err)
	defer engine.Close()
	impl := engine.(*memoryImpl)

	assert.Equal(t, 1, impl.switches)

	require.NoError(t, engine.Select("users"))
	require.NoError(t, engine.Select("users"))
	assert.Equal(t, 2, impl.switches)

	require.NoError(t, engine.Select(db.DefaultNamespace))
	assert.Equal(t, 3, impl.switches)
}

func TestNamespaceLimit(t *testing.T) {
	cfg := db.DefaultConfig(db.ImplMemory, "")
	cfg.MaxNamespaces = 2
	engine, err := Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Select("second"))
	err = engine.Select("third")
	assert.ErrorIs(t, err, db.ErrEngine)
	assert.Contains(t, err.Error(), "namespace limit reached")
	assert.Equal(t, "second", engine.CurrentNamespace())

	// existing namespaces can always be selected again
	require.NoError(t, engine.Select(db.DefaultNamespace))

	names, err := engine.Databases()
	require.NoError(t, err)
	assert.Equal(t, []string{db.DefaultNamespace, "second"}, names)
}

func TestEmptyKey(t *testing.T) {
	engine, err := Open(db.DefaultConfig(db.ImplMemory, ""))
	require.NoError(t, err)
	defer engine.Close()

	assert.ErrorIs(t, engine.Set(nil, []byte("v")), db.ErrInvalidArgument)
	assert.ErrorIs(t, engine.Delete([]byte("missing")), db.ErrNotFound)
}

// TestFlushCommitsOnlyDeletions checks that flushing an empty namespace
// keeps the committed tree and a real flush replaces it
func TestFlushCommitsOnlyDeletions(t *testing.T) {
	engine, err := Open(db.DefaultConfig(db.ImplMemory, ""))
	require.NoError(t, err)
	defer engine.Close()
	impl := engine.(*memoryImpl)

	before := impl.dbi.Tree()
	require.NoError(t, engine.Flush())
	assert.Same(t, before, impl.dbi.Tree())

	require.NoError(t, engine.Set([]byte("k"), []byte("v")))
	before = impl.dbi.Tree()
	require.NoError(t, engine.Flush())
	assert.NotSame(t, before, impl.dbi.Tree())
	assert.Zero(t, impl.dbi.Len())
}

func TestFlushOnlyTouchesActiveNamespace(t *testing.T) {
	engine, err := Open(db.DefaultConfig(db.ImplMemory, ""))
	require.NoError(t, err)
	defer engine.Close()

	require.NoError(t, engine.Set([]byte("a"), []byte("1")))
	require.NoError(t, engine.Select("other"))
	require.NoError(t, engine.Set([]byte("b"), []byte("2")))
	require.NoError(t, engine.Flush())
	// flushing an empty namespace is fine
	require.NoError(t, engine.Flush())

	n, err := engine.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, engine.Select(db.DefaultNamespace))
	n, err = engine.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := db.DefaultConfig(db.ImplMemory, filepath.Join(t.TempDir(), "snapshot.ekv"))
	engine, err := Open(cfg)
	require.NoError(t, err)
	assert.True(t, engine.SupportsFeature(db.FeaturePersistent))

	require.NoError(t, engine.Set([]byte("k1"), []byte("v1")))
	require.NoError(t, engine.Select("users"))
	require.NoError(t, engine.Set([]byte("alice"), []byte("admin")))
	require.NoError(t, engine.Set([]byte("bob"), []byte("")))
	require.NoError(t, engine.Close())
	assert.FileExists(t, cfg.Path)

	cfg.EnvFlags |= db.EnvReadOnly
	cfg.Namespace = "users"
	engine, err = Open(cfg)
	require.NoError(t, err)
	defer engine.Close()

	names, err := engine.Databases()
	require.NoError(t, err)
	assert.Equal(t, []string{db.DefaultNamespace, "users"}, names)

	v, err := engine.Get([]byte("alice"))
	require.NoError(t, err)
	assert.Equal(t, "admin", string(v))
	v, err = engine.Get([]byte("bob"))
	require.NoError(t, err)
	assert.Empty(t, v)

	assert.ErrorIs(t, engine.Set([]byte("x"), []byte("y")), db.ErrEngine)
	assert.ErrorIs(t, engine.Select("missing"), db.ErrNotFound)

	require.NoError(t, engine.Select(db.DefaultNamespace))
	v, err = engine.Get([]byte("k1"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(v))
}

func TestOpenPathChecks(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(db.DefaultConfig(db.ImplMemory, dir))
	assert.ErrorIs(t, err, db.ErrPath)

	_, err = Open(db.DefaultConfig(db.ImplMemory, filepath.Join(dir, "missing", "snapshot")))
	assert.ErrorIs(t, err, db.ErrPath)

	cfg := db.DefaultConfig(db.ImplMemory, filepath.Join(dir, "absent"))
	cfg.EnvFlags = 0
	_, err = Open(cfg)
	assert.ErrorIs(t, err, db.ErrEngine)
	assert.Contains(t, err.Error(), "Fail open database")

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a snapshot"), 0o600))
	_, err = Open(db.DefaultConfig(db.ImplMemory, garbage))
	assert.ErrorIs(t, err, db.ErrEngine)

	require.NoError(t, TestConnection(db.DefaultConfig(db.ImplMemory, "")))
	// testing a connection never creates the snapshot
	fresh := filepath.Join(dir, "fresh")
	require.NoError(t, TestConnection(db.DefaultConfig(db.ImplMemory, fresh)))
	assert.NoFileExists(t, fresh)
}
