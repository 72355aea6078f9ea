package internal

import (
	"bytes"
	"errors"

	"github.com/google/btree"
)

// degree of every namespace tree
const degree = 32

// ErrConflict is returned when a transaction commits on top of a tree that
// changed after the transaction began.
var ErrConflict = errors.New("transaction conflict: namespace changed since begin")

// --------------------------------------------------------------------------
// Item Type (key-value pair stored in the tree)
// --------------------------------------------------------------------------

// Item is one entry of a namespace tree. Items are immutable once inserted.
type Item struct {
	Key   []byte
	Value []byte
}

func itemLess(a, b Item) bool {
	return bytes.Compare(a.Key, b.Key) < 0
}

// NewTree creates an empty namespace tree ordered by key bytes.
func NewTree() *btree.BTreeG[Item] {
	return btree.NewG[Item](degree, itemLess)
}

// --------------------------------------------------------------------------
// Namespace Type
// --------------------------------------------------------------------------

// Namespace holds the committed tree of one namespace. The committed tree is
// never mutated; writes go to a copy-on-write clone that replaces it on commit.
//
// Thread-safety: not safe for concurrent use.
type Namespace struct {
	tree *btree.BTreeG[Item]
}

// NewNamespace creates an empty namespace, or one holding tree if not nil.
func NewNamespace(tree *btree.BTreeG[Item]) *Namespace {
	if tree == nil {
		tree = NewTree()
	}
	return &Namespace{tree: tree}
}

// Len returns the number of committed keys.
func (n *Namespace) Len() int {
	return n.tree.Len()
}

// Tree returns the committed tree for reading.
func (n *Namespace) Tree() *btree.BTreeG[Item] {
	return n.tree
}

// Begin starts a write transaction on a lazy clone of the committed tree.
func (n *Namespace) Begin() *Txn {
	return &Txn{
		ns:   n,
		base: n.tree,
		tree: n.tree.Clone(),
	}
}

// --------------------------------------------------------------------------
// Transaction Type
// --------------------------------------------------------------------------

// Txn is a write transaction. Changes become visible with Commit and are
// dropped with Abort. A finished transaction must not be used again.
type Txn struct {
	ns   *Namespace
	base *btree.BTreeG[Item]
	tree *btree.BTreeG[Item]
}

// Put inserts or replaces a key. Key and value are stored as given.
func (t *Txn) Put(key, value []byte) {
	t.tree.ReplaceOrInsert(Item{Key: key, Value: value})
}

// Get returns the value of a key as seen by this transaction.
func (t *Txn) Get(key []byte) ([]byte, bool) {
	item, ok := t.tree.Get(Item{Key: key})
	return item.Value, ok
}

// Delete removes a key and reports whether it existed.
func (t *Txn) Delete(key []byte) bool {
	_, ok := t.tree.Delete(Item{Key: key})
	return ok
}

// Tree exposes the transaction's tree, e.g. for a cursor walk.
func (t *Txn) Tree() *btree.BTreeG[Item] {
	return t.tree
}

// Commit publishes the transaction's tree.
func (t *Txn) Commit() error {
	if t.ns.tree != t.base {
		return ErrConflict
	}
	t.ns.tree = t.tree
	t.tree = nil
	return nil
}

// Abort drops all changes of the transaction.
func (t *Txn) Abort() {
	t.tree = nil
}
