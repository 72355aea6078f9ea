package internal

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxnIsolation(t *testing.T) {
	ns := NewNamespace(nil)

	txn := ns.Begin()
	txn.Put([]byte("a"), []byte("1"))
	v, ok := txn.Get([]byte("a"))
	require.True(t, ok)
	assert.Equal(t, "1", string(v))

	// not visible before commit
	assert.Zero(t, ns.Len())
	require.NoError(t, txn.Commit())
	assert.Equal(t, 1, ns.Len())

	aborted := ns.Begin()
	assert.True(t, aborted.Delete([]byte("a")))
	assert.False(t, aborted.Delete([]byte("a")))
	aborted.Abort()
	assert.Equal(t, 1, ns.Len())
}

func TestTxnConflict(t *testing.T) {
	ns := NewNamespace(nil)

	first := ns.Begin()
	second := ns.Begin()
	first.Put([]byte("a"), []byte("1"))
	second.Put([]byte("b"), []byte("2"))

	require.NoError(t, first.Commit())
	assert.ErrorIs(t, second.Commit(), ErrConflict)

	_, ok := ns.Tree().Get(Item{Key: []byte("b")})
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	users := NewTree()
	for i := 0; i < 100; i++ {
		users.ReplaceOrInsert(Item{Key: []byte(fmt.Sprintf("user:%03d", i)), Value: []byte(fmt.Sprint(i))})
	}
	empty := NewTree()

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, []NamedTree{{Name: "empty", Tree: empty}, {Name: "users", Tree: users}}))

	restored, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, "empty", restored[0].Name)
	assert.Zero(t, restored[0].Tree.Len())
	assert.Equal(t, "users", restored[1].Name)
	require.Equal(t, 100, restored[1].Tree.Len())

	item, ok := restored[1].Tree.Get(Item{Key: []byte("user:042")})
	require.True(t, ok)
	assert.Equal(t, "42", string(item.Value))
}

func TestSnapshotRejectsGarbage(t *testing.T) {
	_, err := ReadSnapshot(bytes.NewReader([]byte("NOTEKV\x00\x01")))
	assert.ErrorContains(t, err, "magic number mismatch")

	var buf bytes.Buffer
	buf.WriteString(MagicNum)
	buf.WriteByte(Version + 1)
	_, err = ReadSnapshot(&buf)
	assert.ErrorContains(t, err, "unsupported version")

	// truncated entry
	var full bytes.Buffer
	tree := NewTree()
	tree.ReplaceOrInsert(Item{Key: []byte("k"), Value: []byte("value")})
	require.NoError(t, WriteSnapshot(&full, []NamedTree{{Name: "ns", Tree: tree}}))
	_, err = ReadSnapshot(bytes.NewReader(full.Bytes()[:full.Len()-2]))
	assert.Error(t, err)
}

// TestSnapshotCorruptLengths checks that oversized counts and lengths in a
// damaged file fail on the missing data
func TestSnapshotCorruptLengths(t *testing.T) {
	header := func(namespaces uint32) *bytes.Buffer {
		var buf bytes.Buffer
		buf.WriteString(MagicNum)
		buf.WriteByte(Version)
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, namespaces))
		return &buf
	}

	// namespace count far beyond the data
	_, err := ReadSnapshot(header(math.MaxUint32))
	assert.ErrorIs(t, err, io.EOF)

	// one entry claiming a 4 GiB key
	buf := header(1)
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint16(2)))
	buf.WriteString("ns")
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint64(1)))
	require.NoError(t, binary.Write(buf, binary.LittleEndian, uint32(math.MaxUint32)))
	buf.WriteString("short")
	_, err = ReadSnapshot(buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	// large entries that are really there still load
	big := bytes.Repeat([]byte{0xab}, bufferSize+10)
	tree := NewTree()
	tree.ReplaceOrInsert(Item{Key: []byte("big"), Value: big})
	var full bytes.Buffer
	require.NoError(t, WriteSnapshot(&full, []NamedTree{{Name: "ns", Tree: tree}}))
	restored, err := ReadSnapshot(&full)
	require.NoError(t, err)
	require.Len(t, restored, 1)
	item, ok := restored[0].Tree.Get(Item{Key: []byte("big")})
	require.True(t, ok)
	assert.Equal(t, big, item.Value)
}
