package command

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/lib/db/engines"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, backend db.Implementation) *Dispatcher {
	path := ""
	if backend != db.ImplMemory {
		path = filepath.Join(t.TempDir(), "env")
	}
	cfg := db.DefaultConfig(backend, path)
	cfg.EnvFlags |= db.EnvNoSync
	conn, err := engines.Open(cfg)
	require.NoError(t, err)
	d, err := NewDispatcher(conn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func exec(t *testing.T, d *Dispatcher, line string) Reply {
	t.Helper()
	reply, err := ExecuteLine(d, line)
	require.NoError(t, err, line)
	return reply
}

func TestTables(t *testing.T) {
	for _, impl := range db.Implementations {
		table, ok := TableFor(impl)
		require.True(t, ok, impl)

		for _, name := range []string{"HELP", "INFO", "CONFIG GET", "SCAN", "KEYS", "DBKCOUNT",
			"FLUSHDB", "SELECT", "SET", "GET", "RENAME", "DELETE", "DEL", "TTL", "QUIT"} {
			_, ok := table.Lookup(name)
			assert.True(t, ok, "%s: %s", impl, name)
		}

		del, _ := table.Lookup("del")
		assert.Equal(t, "DELETE", del.Name)
		assert.Equal(t, Unlimited, del.MaxArgs)

		scan, _ := table.Lookup("SCAN")
		assert.Equal(t, 1, scan.MinArgs)
		assert.Equal(t, 5, scan.MaxArgs)
	}

	upscale, _ := TableFor(db.ImplUpscaleDB)
	sel, _ := upscale.Lookup("SELECT")
	assert.Equal(t, "SELECT <num>", sel.Usage())
}

func TestBasicCommands(t *testing.T) {
	for _, impl := range db.Implementations {
		t.Run(string(impl), func(t *testing.T) {
			d := newDispatcher(t, impl)

			assert.Equal(t, OK(), exec(t, d, `set greeting "hello world"`))
			assert.Equal(t, String([]byte("hello world")), exec(t, d, "GET greeting"))
			assert.Equal(t, Integer(1), exec(t, d, "DBKCOUNT"))

			assert.Equal(t, OK(), exec(t, d, "RENAME greeting welcome"))
			_, err := ExecuteLine(d, "GET greeting")
			assert.ErrorIs(t, err, db.ErrNotFound)

			exec(t, d, "SET a 1")
			exec(t, d, "SET b 2")
			assert.Equal(t, Integer(2), exec(t, d, "DEL a b missing"))
			assert.Equal(t, Integer(1), exec(t, d, "DELETE welcome"))

			exec(t, d, "SET c 3")
			assert.Equal(t, OK(), exec(t, d, "FLUSHDB"))
			assert.Equal(t, Integer(0), exec(t, d, "DBKCOUNT"))
		})
	}
}

func TestArity(t *testing.T) {
	d := newDispatcher(t, db.ImplMemory)

	for _, line := range []string{"SET k", "GET", "GET a b", "KEYS a b", "DBKCOUNT x", "DEL", "SELECT", "QUIT now"} {
		_, err := ExecuteLine(d, line)
		assert.ErrorIs(t, err, db.ErrInvalidArgument, line)
		assert.Contains(t, err.Error(), "wrong number of arguments", line)
	}

	_, err := ExecuteLine(d, "FROB x")
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "unknown command 'FROB'")

	_, err = d.Execute(nil)
	assert.ErrorIs(t, err, db.ErrInvalidArgument)

	_, err = ExecuteLine(d, `SET "unterminated`)
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
}

func TestScan(t *testing.T) {
	d := newDispatcher(t, db.ImplMemory)
	for _, k := range []string{"a", "b", "user:1", "user:2", "user:3"} {
		exec(t, d, "SET "+k+" v")
	}

	reply := exec(t, d, "SCAN 0 MATCH user:* COUNT 2")
	require.Equal(t, ReplyArray, reply.Type)
	assert.Equal(t, "2", reply.Elems[0].Text())
	assert.Equal(t, Strings([][]byte{[]byte("user:1"), []byte("user:2")}), reply.Elems[1])

	// options in any order
	reply = exec(t, d, "SCAN 2 COUNT 2 MATCH user:*")
	assert.Equal(t, "0", reply.Elems[0].Text())
	assert.Equal(t, Strings([][]byte{[]byte("user:3")}), reply.Elems[1])

	// default count covers everything
	reply = exec(t, d, "SCAN 0")
	assert.Equal(t, "0", reply.Elems[0].Text())
	assert.Len(t, reply.Elems[1].Elems, 5)

	for _, line := range []string{"SCAN x", "SCAN 0 COUNT", "SCAN 0 COUNT 0", "SCAN 0 COUNT -1", "SCAN 0 LIMIT 3", "SCAN 0 MATCH [a-"} {
		_, err := ExecuteLine(d, line)
		assert.ErrorIs(t, err, db.ErrInvalidArgument, line)
	}
}

func TestKeys(t *testing.T) {
	d := newDispatcher(t, db.ImplMemory)
	for _, k := range []string{"a", "b", "c", "d"} {
		exec(t, d, "SET "+k+" v")
	}

	assert.Equal(t, Strings([][]byte{[]byte("b"), []byte("c")}), exec(t, d, "KEYS a d 10"))
	assert.Equal(t, Strings([][]byte{[]byte("b")}), exec(t, d, "KEYS a d 1"))

	_, err := ExecuteLine(d, "KEYS a d many")
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
}

func TestSelectAndConfig(t *testing.T) {
	d := newDispatcher(t, db.ImplLMDB)

	exec(t, d, "SET k v")
	assert.Equal(t, OK(), exec(t, d, "SELECT users"))
	assert.Equal(t, "users", d.Conn().CurrentNamespace())
	assert.Equal(t, Integer(0), exec(t, d, "DBKCOUNT"))

	dbs := exec(t, d, "CONFIG GET databases")
	assert.Equal(t, Strings([][]byte{[]byte(db.DefaultNamespace), []byte("users")}), dbs)

	backend := exec(t, d, "config get BACKEND")
	assert.Equal(t, Array(String([]byte("backend")), String([]byte("lmdb"))), backend)

	assert.Equal(t, Array(), exec(t, d, "CONFIG GET nothing"))
}

func TestTTLNotSupported(t *testing.T) {
	d := newDispatcher(t, db.ImplUpscaleDB)
	exec(t, d, "SET k v")

	_, err := ExecuteLine(d, "TTL k")
	assert.ErrorIs(t, err, db.ErrNotSupported)
	_, err = ExecuteLine(d, "EXPIRE k 10")
	assert.ErrorIs(t, err, db.ErrNotSupported)
	_, err = ExecuteLine(d, "EXPIRE k soon")
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
}

func TestHelpAndInfo(t *testing.T) {
	d := newDispatcher(t, db.ImplMemory)

	all := exec(t, d, "HELP")
	require.Equal(t, ReplyArray, all.Type)
	assert.Len(t, all.Elems, len(d.Table().Commands()))

	one := exec(t, d, "HELP config get")
	assert.Equal(t, "CONFIG GET <parameter>", one.Elems[0].Text())

	del := exec(t, d, "HELP DEL")
	assert.Equal(t, "arguments: 1 or more", del.Elems[2].Text())
	assert.Equal(t, "aliases: DEL", del.Elems[3].Text())

	_, err := ExecuteLine(d, "HELP FROB")
	assert.ErrorIs(t, err, db.ErrInvalidArgument)

	exec(t, d, "SET k v")
	info := exec(t, d, "INFO").Text()
	assert.Contains(t, info, "db_type:memory")
	assert.Contains(t, info, "based_on:github.com/google/btree")
	assert.Contains(t, info, "current_namespace:default")
	assert.Contains(t, info, "keys:1")
	assert.Contains(t, info, "# Metadata")

	server := exec(t, d, "INFO server").Text()
	assert.NotContains(t, server, "# Keyspace")

	_, err = ExecuteLine(d, "INFO nonsense")
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
}

func TestQuit(t *testing.T) {
	d := newDispatcher(t, db.ImplMemory)

	assert.Equal(t, OK(), exec(t, d, "QUIT"))
	assert.False(t, d.Conn().IsConnected())

	_, err := ExecuteLine(d, "GET k")
	assert.ErrorIs(t, err, db.ErrNotConnected)
	_, err = ExecuteLine(d, "DEL k")
	assert.ErrorIs(t, err, db.ErrNotConnected)

	// closing again is harmless
	assert.NoError(t, d.Close())
}
