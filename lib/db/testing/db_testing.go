package testing

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DBFactory opens a fresh, empty connection on its initial namespace.
// Implementations use tb.TempDir for storage; the suite closes the connection.
type DBFactory func(tb testing.TB) db.KVDB

// RunKVDBTests runs the conformance suite every backend has to pass.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		run := func(name string, fn func(t *testing.T, database db.KVDB)) {
			t.Run(name, func(t *testing.T) {
				database := factory(t)
				defer database.Close()
				fn(t, database)
			})
		}

		run("Set&Get", testSetGet)
		run("Delete", testDelete)
		run("DeleteMany", testDeleteMany)
		run("Rename", testRename)
		run("FlushDB", testFlushDB)
		run("DBKCount", testDBKCount)
		run("Keys", testKeys)
		run("Scan", testScan)
		run("ScanPagination", testScanPagination)
		run("Select", testSelect)
		run("ConfigGetDatabases", testConfigGetDatabases)
		run("TTL", testTTL)
		run("Info", testInfo)
		run("Close", testClose)
		run("RealisticUsage", testRealisticUsage)
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// otherNamespace returns a second namespace name valid for the backend.
func otherNamespace(database db.KVDB) string {
	if database.Backend() == db.ImplUpscaleDB {
		return "2"
	}
	return "other"
}

func set(t testing.TB, database db.KVDB, key, value string) {
	t.Helper()
	require.NoError(t, database.Set([]byte(key), []byte(value)))
}

func strs(keys [][]byte) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = string(k)
	}
	return out
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	set(t, database, "key1", "value1")

	v, err := database.Get([]byte("key1"))
	require.NoError(t, err)
	assert.Equal(t, "value1", string(v))

	// overwrite
	set(t, database, "key1", "value2")
	v, err = database.Get([]byte("key1"))
	require.NoError(t, err)
	assert.Equal(t, "value2", string(v))

	// binary keys and values survive unchanged
	key := []byte{0x00, 0xff, 0x10}
	value := bytes.Repeat([]byte{0x00, 0x01, 0xfe}, 1000)
	require.NoError(t, database.Set(key, value))
	v, err = database.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, v)

	// the returned value must not alias engine memory
	v[0] = 0x42
	v2, err := database.Get(key)
	require.NoError(t, err)
	assert.Equal(t, byte(0x00), v2[0])

	_, err = database.Get([]byte("missing"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	// an empty key is rejected and never shows up in a scan
	assert.ErrorIs(t, database.Set(nil, []byte("v")), db.ErrInvalidArgument)
	assert.ErrorIs(t, database.Set([]byte{}, []byte("v")), db.ErrInvalidArgument)
	keys, _, err := database.Scan(0, "*", 100)
	require.NoError(t, err)
	assert.NotContains(t, strs(keys), "")
}

func testDelete(t *testing.T, database db.KVDB) {
	set(t, database, "key1", "value1")

	require.NoError(t, database.Delete([]byte("key1")))
	_, err := database.Get([]byte("key1"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	// deleting a missing key reports NotFound on every backend
	err = database.Delete([]byte("key1"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testDeleteMany(t *testing.T, database db.KVDB) {
	set(t, database, "k1", "v")
	set(t, database, "k2", "v")
	set(t, database, "k3", "v")

	deleted := database.DeleteMany([][]byte{[]byte("k1"), []byte("kMissing"), []byte("k2")})
	assert.Equal(t, []string{"k1", "k2"}, strs(deleted))

	count, err := database.DBKCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func testRename(t *testing.T, database db.KVDB) {
	set(t, database, "old", "value")

	// missing source: no mutation
	err := database.Rename([]byte("absent"), []byte("new"))
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = database.Get([]byte("new"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	require.NoError(t, database.Rename([]byte("old"), []byte("new")))
	v, err := database.Get([]byte("new"))
	require.NoError(t, err)
	assert.Equal(t, "value", string(v))
	_, err = database.Get([]byte("old"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testFlushDB(t *testing.T, database db.KVDB) {
	// flushing an empty namespace is fine
	require.NoError(t, database.FlushDB())

	for i := 0; i < 100; i++ {
		set(t, database, fmt.Sprintf("key%03d", i), "v")
	}
	require.NoError(t, database.FlushDB())

	count, err := database.DBKCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	// the namespace stays usable
	set(t, database, "after", "flush")
	count, err = database.DBKCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func testDBKCount(t *testing.T, database db.KVDB) {
	count, err := database.DBKCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	for i := 0; i < 25; i++ {
		set(t, database, fmt.Sprintf("key%02d", i), "v")
	}
	set(t, database, "key00", "overwrite")

	count, err = database.DBKCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(25), count)
}

func testKeys(t *testing.T, database db.KVDB) {
	for _, k := range []string{"a", "b", "c", "z"} {
		set(t, database, k, "v")
	}

	keys, err := database.Keys([]byte("a"), []byte("z"), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, strs(keys))

	keys, err = database.Keys([]byte("a"), []byte("z"), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, strs(keys))

	keys, err = database.Keys([]byte("z"), []byte("a"), 10)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func testScan(t *testing.T, database db.KVDB) {
	set(t, database, "a", "1")
	set(t, database, "b", "2")

	keys, cursor, err := database.Scan(0, "*", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, strs(keys))
	assert.Equal(t, uint64(0), cursor)

	keys, cursor, err = database.Scan(0, "*", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, strs(keys))
	assert.Equal(t, uint64(1), cursor)

	keys, cursor, err = database.Scan(cursor, "*", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, strs(keys))
	assert.Equal(t, uint64(0), cursor)

	// the last match is followed by a non-matching key: one extra empty page
	set(t, database, "c", "3")
	keys, cursor, err = database.Scan(0, "[ab]", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, strs(keys))
	assert.Equal(t, uint64(2), cursor)

	keys, cursor, err = database.Scan(cursor, "[ab]", 2)
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, uint64(0), cursor)

	_, _, err = database.Scan(0, "*", 0)
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
}

func testScanPagination(t *testing.T, database db.KVDB) {
	for i := 0; i < 50; i++ {
		set(t, database, fmt.Sprintf("user:%02d", i), "v")
		set(t, database, fmt.Sprintf("item:%02d", i), "v")
	}

	var (
		seen   []string
		cursor uint64
		calls  int
	)
	for {
		keys, next, err := database.Scan(cursor, "user:*", 7)
		require.NoError(t, err)
		seen = append(seen, strs(keys)...)
		calls++
		if next == 0 {
			break
		}
		cursor = next
		require.Less(t, calls, 100, "scan does not terminate")
	}

	require.Len(t, seen, 50)
	for i, k := range seen {
		assert.Equal(t, fmt.Sprintf("user:%02d", i), k)
	}
}

func testSelect(t *testing.T, database db.KVDB) {
	initial := database.CurrentNamespace()
	other := otherNamespace(database)
	set(t, database, "shared", "initial")

	info, err := database.Select(other)
	require.NoError(t, err)
	assert.Equal(t, db.DatabaseInfo{Name: other, IsDefault: true, KeyCount: 0}, info)
	assert.Equal(t, other, database.CurrentNamespace())

	// namespaces are isolated
	_, err = database.Get([]byte("shared"))
	assert.ErrorIs(t, err, db.ErrNotFound)
	set(t, database, "shared", "other")
	set(t, database, "only-other", "x")

	info, err = database.Select(initial)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), info.KeyCount)
	v, err := database.Get([]byte("shared"))
	require.NoError(t, err)
	assert.Equal(t, "initial", string(v))

	// selecting the active namespace again is a no-op
	info, err = database.Select(initial)
	require.NoError(t, err)
	assert.Equal(t, initial, info.Name)
	assert.Equal(t, uint64(1), info.KeyCount)
}

func testConfigGetDatabases(t *testing.T, database db.KVDB) {
	names, err := database.ConfigGetDatabases()
	require.NoError(t, err)
	assert.Contains(t, names, database.CurrentNamespace())
}

func testTTL(t *testing.T, database db.KVDB) {
	set(t, database, "key", "value")

	_, err := database.GetTTL([]byte("key"))
	assert.ErrorIs(t, err, db.ErrNotSupported)
	assert.ErrorIs(t, database.SetTTL([]byte("key"), 10), db.ErrNotSupported)

	// the key is untouched
	_, err = database.Get([]byte("key"))
	assert.NoError(t, err)
}

func testInfo(t *testing.T, database db.KVDB) {
	set(t, database, "key", "value")

	info, err := database.Info()
	require.NoError(t, err)
	assert.Equal(t, database.Backend(), info.DbType)
	assert.Equal(t, database.CurrentNamespace(), info.CurrentNamespace)
	assert.NotEmpty(t, info.BasedOn)
}

func testClose(t *testing.T, database db.KVDB) {
	require.NoError(t, database.Close())
	require.NoError(t, database.Close())
	assert.False(t, database.IsConnected())

	err := database.Set([]byte("k"), []byte("v"))
	assert.ErrorIs(t, err, db.ErrNotConnected)
	_, err = database.Get([]byte("k"))
	assert.ErrorIs(t, err, db.ErrNotConnected)
	_, err = database.DBKCount()
	assert.ErrorIs(t, err, db.ErrNotConnected)
	_, err = database.Select("x")
	assert.ErrorIs(t, err, db.ErrNotConnected)

	assert.Panics(t, func() { database.CurrentNamespace() })
}

func testRealisticUsage(t *testing.T, database db.KVDB) {
	const users = 200
	for i := 0; i < users; i++ {
		set(t, database, fmt.Sprintf("user:%04d", i), fmt.Sprintf(`{"id":%d}`, i))
	}

	// delete every third user
	var toDelete [][]byte
	for i := 0; i < users; i += 3 {
		toDelete = append(toDelete, []byte(fmt.Sprintf("user:%04d", i)))
	}
	deleted := database.DeleteMany(toDelete)
	assert.Len(t, deleted, len(toDelete))

	// rename a few
	for i := 1; i < 10; i += 3 {
		require.NoError(t, database.Rename(
			[]byte(fmt.Sprintf("user:%04d", i)),
			[]byte(fmt.Sprintf("archived:%04d", i))))
	}

	count, err := database.DBKCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(users-len(toDelete)), count)

	keys, err := database.Keys([]byte("archived:"), []byte("archived:\xff"), 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"archived:0001", "archived:0004", "archived:0007"}, strs(keys))

	v, err := database.Get([]byte("archived:0004"))
	require.NoError(t, err)
	assert.Equal(t, `{"id":4}`, string(v))
}
