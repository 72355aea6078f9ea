package engines

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEveryBackend(t *testing.T) {
	for _, impl := range db.Implementations {
		t.Run(string(impl), func(t *testing.T) {
			path := ""
			if impl != db.ImplMemory {
				path = filepath.Join(t.TempDir(), "env")
			}
			cfg := db.DefaultConfig(impl, path)
			require.NoError(t, TestConnection(cfg))

			conn, err := Open(cfg)
			require.NoError(t, err)
			defer conn.Close()

			assert.Equal(t, impl, conn.Backend())
			assert.Equal(t, cfg.InitialNamespace(), conn.CurrentNamespace())
			require.NoError(t, conn.Set([]byte("k"), []byte("v")))
			n, err := conn.DBKCount()
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(db.DefaultConfig("rocksdb", ""))
	assert.ErrorIs(t, err, db.ErrInvalidArgument)
	assert.ErrorIs(t, TestConnection(db.DefaultConfig("rocksdb", "")), db.ErrInvalidArgument)
}
