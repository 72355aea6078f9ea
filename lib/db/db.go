package db

import (
	"fmt"
	"strings"
)

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// Implementation names a storage backend. It is the tag used by the runtime
// factory (see engines.Open) to pick an engine.
type Implementation string

const (
	ImplLMDB      Implementation = "lmdb"
	ImplUpscaleDB Implementation = "upscaledb"
	ImplMemory    Implementation = "memory"
)

// Implementations lists every backend known to this package in a stable order.
var Implementations = []Implementation{ImplLMDB, ImplUpscaleDB, ImplMemory}

// ParseImplementation converts a backend name (case-insensitive) into an Implementation.
func ParseImplementation(name string) (Implementation, error) {
	impl := Implementation(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Implementations {
		if impl == known {
			return impl, nil
		}
	}
	return "", NewError(KindInvalidArgument, "", fmt.Sprintf("unknown backend %q", name))
}

// Feature represents engine capabilities as bit flags
type Feature uint64

const (
	FeatureNamedNamespaces   Feature = 1 << iota // Namespaces are addressed by name
	FeatureNumericNamespaces                     // Namespaces are addressed by a 16-bit id
	FeatureEnumerate                             // All namespaces can be enumerated
	FeatureNativeCount                           // Key count without a cursor walk
	FeatureExplicitTxn                           // Engine exposes explicit transactions
	FeatureTTL                                   // Per-key expiration
	FeaturePersistent                            // Data survives Close
)

func (f Feature) String() string {
	switch f {
	case FeatureNamedNamespaces:
		return "NamedNamespaces"
	case FeatureNumericNamespaces:
		return "NumericNamespaces"
	case FeatureEnumerate:
		return "Enumerate"
	case FeatureNativeCount:
		return "NativeCount"
	case FeatureExplicitTxn:
		return "ExplicitTxn"
	case FeatureTTL:
		return "TTL"
	case FeaturePersistent:
		return "Persistent"
	default:
		return "Unknown"
	}
}

// Features splits a bit set into its single flags, lowest bit first.
func (f Feature) Features() []Feature {
	var out []Feature
	for bit := Feature(1); bit != 0 && bit <= f; bit <<= 1 {
		if f&bit != 0 {
			out = append(out, bit)
		}
	}
	return out
}

// EnvFlag controls how an engine environment is opened.
type EnvFlag uint32

const (
	EnvCreateIfMissing EnvFlag = 1 << iota // create the storage if it does not exist yet
	EnvReadOnly                            // open read-only, no writes or namespace creation
	EnvNoSubdir                            // lmdb: the path is the data file, not a directory
	EnvNoSync                              // skip fsync on commit
)

// Has reports whether all bits of other are set.
func (f EnvFlag) Has(other EnvFlag) bool {
	return f&other == other
}

func (f EnvFlag) String() string {
	var parts []string
	names := []struct {
		flag EnvFlag
		name string
	}{
		{EnvCreateIfMissing, "create"},
		{EnvReadOnly, "readonly"},
		{EnvNoSubdir, "nosubdir"},
		{EnvNoSync, "nosync"},
	}
	for _, n := range names {
		if f.Has(n.flag) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// DatabaseInfo is the snapshot returned by a namespace selection.
// IsDefault marks the namespace as the one now active on the connection.
type DatabaseInfo struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
	KeyCount  uint64 `json:"key_count"`
}

// KeyValueEntry is a single key/value pair.
type KeyValueEntry struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// EngineInfo describes an open engine. Metadata is engine specific.
type EngineInfo struct {
	DbType            Implementation `json:"db_type"`
	BasedOn           string         `json:"based_on"`
	Path              string         `json:"path"`
	ReadOnly          bool           `json:"read_only"`
	CurrentNamespace  string         `json:"current_namespace"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine is the native capability set of one storage backend bound to one
// live environment. Engines own exactly one active namespace at a time and
// never keep a transaction or cursor open between calls.
//
// Engines are not safe for concurrent use. Callers serialize access.
type Engine interface {

	// --------------------------------------------------------------------------
	// Lifecycle
	// --------------------------------------------------------------------------

	// Close releases the active namespace descriptor and then the environment.
	// Calling Close more than once is a no-op.
	Close() error

	// IsConnected reports whether the environment is still open.
	IsConnected() bool

	// CurrentNamespace returns the cached label of the active namespace.
	// It panics if the engine has been closed.
	CurrentNamespace() string

	// Select makes the named namespace active. It is a no-op if the name equals
	// the current label. On failure the previous namespace stays active.
	Select(name string) error

	// --------------------------------------------------------------------------
	// Data Operations (active namespace)
	// --------------------------------------------------------------------------

	// Set writes the key in its own write transaction.
	Set(key, value []byte) error

	// Get returns a copy of the value, or an error of kind NotFound.
	Get(key []byte) ([]byte, error)

	// Delete removes the key, or returns an error of kind NotFound.
	Delete(key []byte) error

	// ForEach walks the namespace in ascending key order inside one read-only
	// transaction until fn returns false. Key and value are only valid during
	// the callback. cmd names the command for error messages.
	ForEach(cmd string, fn func(key, value []byte) bool) error

	// Count returns the number of keys in the namespace.
	Count() (uint64, error)

	// Flush erases every key of the namespace in one write transaction.
	Flush() error

	// Databases lists the namespaces the engine can report.
	Databases() ([]string, error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports all the given features.
	SupportsFeature(feature Feature) bool

	// GetInfo returns information about the engine.
	GetInfo() EngineInfo
}

// --------------------------------------------------------------------------
// Connection Interface
// --------------------------------------------------------------------------

// KVDB is the command level contract every backend offers through a
// Connection. All methods return *Error values with a generic Kind.
type KVDB interface {
	Close() error
	IsConnected() bool
	CurrentNamespace() string
	Backend() Implementation
	Config() Config
	Info() (EngineInfo, error)

	Select(name string) (DatabaseInfo, error)
	ConfigGetDatabases() ([]string, error)

	Set(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	DeleteMany(keys [][]byte) [][]byte
	Rename(key, newKey []byte) error
	GetTTL(key []byte) (int64, error)
	SetTTL(key []byte, seconds int64) error

	Scan(cursor uint64, pattern string, count uint64) (keys [][]byte, next uint64, err error)
	Keys(start, end []byte, limit uint64) ([][]byte, error)
	DBKCount() (uint64, error)
	FlushDB() error
}
