package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// --------------------------------------------------------------------------
// Path Helpers
// --------------------------------------------------------------------------

// PathKind describes what currently exists at a storage path.
type PathKind uint8

const (
	PathMissing PathKind = iota
	PathFile
	PathDir
)

func (k PathKind) String() string {
	switch k {
	case PathFile:
		return "file"
	case PathDir:
		return "directory"
	default:
		return "missing"
	}
}

// StatPath returns the kind of the entry at path. A missing path is not an error.
func StatPath(path string) (PathKind, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return PathMissing, nil
	}
	if err != nil {
		return PathMissing, err
	}
	if info.IsDir() {
		return PathDir, nil
	}
	return PathFile, nil
}

// ParentIsDir checks that the folder containing path exists and is a directory.
func ParentIsDir(path string) error {
	parent := filepath.Dir(filepath.Clean(path))
	kind, err := StatPath(parent)
	if err != nil {
		return err
	}
	if kind != PathDir {
		return fmt.Errorf("invalid input path(%s): parent folder %s is not a directory", path, parent)
	}
	return nil
}

// --------------------------------------------------------------------------
// Byte Helpers
// --------------------------------------------------------------------------

// CopyBytes returns a copy of b that does not alias engine owned memory.
// A nil slice stays nil, an empty one stays empty.
func CopyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
