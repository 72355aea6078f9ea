package util

import (
	"bytes"
	"errors"

	"github.com/gobwas/glob"
)

// --------------------------------------------------------------------------
// Cursor Walks
// --------------------------------------------------------------------------

// Walker visits the keys of one namespace in ascending byte order, inside one
// read-only transaction, until fn returns false.
type Walker func(fn func(key, value []byte) bool) error

// ErrZeroCount is returned by ScanPage when the page size is zero.
var ErrZeroCount = errors.New("COUNT must be greater than zero")

// CompilePattern compiles a SCAN glob. Supported syntax: '*', '?', '[abc]',
// '[!a-z]', '{a,b}' and '\' escapes. An empty pattern matches every key.
func CompilePattern(pattern string) (glob.Glob, error) {
	if pattern == "" {
		pattern = "*"
	}
	return glob.Compile(pattern)
}

// ScanPage implements the skip-count cursor of SCAN.
//
// The walk skips the first cursorIn matching keys and collects up to count
// further matches. If any entry follows a full page, the walk stops there and
// the returned cursor is cursorIn+count. If the namespace ends first, the
// returned cursor is 0. The following entry is not matched against the
// pattern, so a page that holds the last matches but is followed by
// non-matching keys reports a non-zero cursor, and the next call returns an
// empty page with cursor 0.
func ScanPage(walk Walker, cursorIn uint64, pattern string, count uint64) ([][]byte, uint64, error) {
	if count == 0 {
		return nil, 0, ErrZeroCount
	}
	matcher, err := CompilePattern(pattern)
	if err != nil {
		return nil, 0, err
	}

	var (
		skipped uint64
		next    uint64
		keys    = make([][]byte, 0, min(count, 64))
	)
	err = walk(func(key, _ []byte) bool {
		if uint64(len(keys)) == count {
			next = cursorIn + count
			return false
		}
		if !matcher.Match(string(key)) {
			return true
		}
		if skipped < cursorIn {
			skipped++
			return true
		}
		keys = append(keys, CopyBytes(key))
		return true
	})
	if err != nil {
		return nil, 0, err
	}
	return keys, next, nil
}

// RangeKeys returns, in ascending order, up to limit keys with
// start < key < end (both bounds exclusive).
func RangeKeys(walk Walker, start, end []byte, limit uint64) ([][]byte, error) {
	keys := make([][]byte, 0, min(limit, 64))
	if limit == 0 {
		return keys, nil
	}
	err := walk(func(key, _ []byte) bool {
		if bytes.Compare(key, end) >= 0 {
			// keys are ordered, nothing after this one can match
			return false
		}
		if bytes.Compare(key, start) > 0 {
			keys = append(keys, CopyBytes(key))
		}
		return uint64(len(keys)) < limit
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}
