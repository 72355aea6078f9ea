package db

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapEngine is a minimal Engine used to test Connection in isolation.
type mapEngine struct {
	data     map[string]string
	ns       string
	closed   bool
	failSet  bool
	closeCnt int
}

func newMapEngine() *mapEngine {
	return &mapEngine{data: map[string]string{}, ns: DefaultNamespace}
}

func (m *mapEngine) Close() error {
	m.closeCnt++
	m.closed = true
	return nil
}
func (m *mapEngine) IsConnected() bool        { return !m.closed }
func (m *mapEngine) CurrentNamespace() string { return m.ns }
func (m *mapEngine) Select(name string) error {
	if name == "" {
		return NewError(KindInvalidArgument, "SELECT", "empty name")
	}
	m.ns = name
	return nil
}
func (m *mapEngine) Set(key, value []byte) error {
	if m.failSet {
		return NewError(KindEngineError, "SET", "read-only")
	}
	m.data[string(key)] = string(value)
	return nil
}
func (m *mapEngine) Get(key []byte) ([]byte, error) {
	v, ok := m.data[string(key)]
	if !ok {
		return nil, NewError(KindNotFound, "GET", "key not found")
	}
	return []byte(v), nil
}
func (m *mapEngine) Delete(key []byte) error {
	if _, ok := m.data[string(key)]; !ok {
		return NewError(KindNotFound, "DEL", "key not found")
	}
	delete(m.data, string(key))
	return nil
}
func (m *mapEngine) ForEach(cmd string, fn func(key, value []byte) bool) error {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !fn([]byte(k), []byte(m.data[k])) {
			return nil
		}
	}
	return nil
}
func (m *mapEngine) Count() (uint64, error)         { return uint64(len(m.data)), nil }
func (m *mapEngine) Flush() error                   { m.data = map[string]string{}; return nil }
func (m *mapEngine) Databases() ([]string, error)   { return []string{m.ns}, nil }
func (m *mapEngine) SupportsFeature(f Feature) bool { return f == FeatureNamedNamespaces }
func (m *mapEngine) GetInfo() EngineInfo {
	return EngineInfo{DbType: ImplMemory, CurrentNamespace: m.ns}
}

func newTestConnection() (*Connection, *mapEngine) {
	engine := newMapEngine()
	return NewConnection(engine, DefaultConfig(ImplMemory, "")), engine
}

func TestConnectionRename(t *testing.T) {
	conn, _ := newTestConnection()
	require.NoError(t, conn.Set([]byte("a"), []byte("1")))

	require.NoError(t, conn.Rename([]byte("a"), []byte("b")))

	_, err := conn.Get([]byte("a"))
	assert.ErrorIs(t, err, ErrNotFound)
	v, err := conn.Get([]byte("b"))
	require.NoError(t, err)
	assert.Equal(t, "1", string(v))

	err = conn.Rename([]byte("missing"), []byte("c"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionRenameLosesValueOnFailedSet(t *testing.T) {
	conn, engine := newTestConnection()
	require.NoError(t, conn.Set([]byte("a"), []byte("1")))
	engine.failSet = true

	err := conn.Rename([]byte("a"), []byte("b"))
	assert.ErrorIs(t, err, ErrEngine)
	assert.Empty(t, engine.data)
}

func TestConnectionDeleteMany(t *testing.T) {
	conn, _ := newTestConnection()
	require.NoError(t, conn.Set([]byte("k1"), []byte("v")))
	require.NoError(t, conn.Set([]byte("k2"), []byte("v")))

	deleted := conn.DeleteMany([][]byte{[]byte("k1"), []byte("missing"), []byte("k2")})
	assert.Equal(t, [][]byte{[]byte("k1"), []byte("k2")}, deleted)

	count, err := conn.DBKCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestConnectionTTLNotSupported(t *testing.T) {
	conn, _ := newTestConnection()

	_, err := conn.GetTTL([]byte("a"))
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.ErrorIs(t, conn.SetTTL([]byte("a"), 10), ErrNotSupported)
}

func TestConnectionSelect(t *testing.T) {
	conn, _ := newTestConnection()
	require.NoError(t, conn.Set([]byte("a"), []byte("1")))

	info, err := conn.Select("other")
	require.NoError(t, err)
	assert.Equal(t, DatabaseInfo{Name: "other", IsDefault: true, KeyCount: 1}, info)

	_, err = conn.Select("")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "other", conn.CurrentNamespace())
}

func TestConnectionClose(t *testing.T) {
	conn, engine := newTestConnection()

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.Equal(t, 1, engine.closeCnt)
	assert.False(t, conn.IsConnected())

	err := conn.Set([]byte("a"), []byte("1"))
	assert.ErrorIs(t, err, ErrNotConnected)
	_, _, err = conn.Scan(0, "*", 10)
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.Empty(t, conn.DeleteMany([][]byte{[]byte("a")}))

	assert.Panics(t, func() { conn.CurrentNamespace() })
}

func TestConnectionScanZeroCount(t *testing.T) {
	conn, _ := newTestConnection()

	_, _, err := conn.Scan(0, "*", 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestConnectionInfo(t *testing.T) {
	conn, _ := newTestConnection()
	require.NoError(t, conn.Set([]byte("a"), []byte("1")))

	info, err := conn.Info()
	require.NoError(t, err)
	assert.Equal(t, ImplMemory, info.DbType)
	assert.NotNil(t, info.Metadata)
}
