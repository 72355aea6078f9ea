package internal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/google/btree"
)

const (
	// MagicNum starts every snapshot file
	MagicNum = "EKVMEM\x00"
	// Version of the snapshot format
	Version = 1

	bufferSize = 1024 * 1024 // 1 MB

	// maxPrealloc caps allocations sized by untrusted header fields
	maxPrealloc = 1024
)

// NamedTree is one namespace as written to or read from a snapshot.
type NamedTree struct {
	Name string
	Tree *btree.BTreeG[Item]
}

// WriteSnapshot writes all namespaces in the given order.
//
// Layout (little endian):
//
//	magic | version u8 | namespaces u32 |
//	  { name_len u16 | name | entries u64 | { key_len u32 | key | value_len u32 | value } }
func WriteSnapshot(w io.Writer, namespaces []NamedTree) error {
	bw := bufio.NewWriterSize(w, bufferSize)

	if _, err := bw.WriteString(MagicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(Version)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(namespaces))); err != nil {
		return err
	}

	for _, ns := range namespaces {
		if err := binary.Write(bw, binary.LittleEndian, uint16(len(ns.Name))); err != nil {
			return err
		}
		if _, err := bw.WriteString(ns.Name); err != nil {
			return err
		}
		if err := binary.Write(bw, binary.LittleEndian, uint64(ns.Tree.Len())); err != nil {
			return err
		}

		var err error
		ns.Tree.Ascend(func(item Item) bool {
			if err = writeBytes(bw, item.Key); err != nil {
				return false
			}
			err = writeBytes(bw, item.Value)
			return err == nil
		})
		if err != nil {
			return err
		}
	}

	return bw.Flush()
}

// ReadSnapshot restores the namespaces written by WriteSnapshot.
func ReadSnapshot(r io.Reader) ([]NamedTree, error) {
	br := bufio.NewReaderSize(r, bufferSize)

	magic := make([]byte, len(MagicNum))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, err
	}
	if string(magic) != MagicNum {
		return nil, fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != Version {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", version, Version)
	}

	var count uint32
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	namespaces := make([]NamedTree, 0, min(count, maxPrealloc))
	for i := uint32(0); i < count; i++ {
		var nameLen uint16
		if err := binary.Read(br, binary.LittleEndian, &nameLen); err != nil {
			return nil, err
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(br, name); err != nil {
			return nil, err
		}

		var entries uint64
		if err := binary.Read(br, binary.LittleEndian, &entries); err != nil {
			return nil, err
		}

		tree := NewTree()
		for j := uint64(0); j < entries; j++ {
			key, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			value, err := readBytes(br)
			if err != nil {
				return nil, err
			}
			tree.ReplaceOrInsert(Item{Key: key, Value: value})
		}
		namespaces = append(namespaces, NamedTree{Name: string(name), Tree: tree})
	}

	return namespaces, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n <= bufferSize {
		b := make([]byte, n)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, err
		}
		return b, nil
	}

	// large entries grow with the data actually read
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, r, int64(n)); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf.Bytes(), nil
}
