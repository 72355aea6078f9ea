package db

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultNamespace is the namespace named engines select on open.
	DefaultNamespace = "default"
	// DefaultDBNum is the database id numeric engines select on open.
	DefaultDBNum uint16 = 1
	// DefaultMaxNamespaces bounds how many namespaces an environment may hold.
	DefaultMaxNamespaces uint32 = 10
)

// --------------------------------------------------------------------------
// Connection configuration
// --------------------------------------------------------------------------

// Config holds everything needed to open one engine. Engines copy it on open,
// later changes to the caller's value have no effect.
type Config struct {
	Backend       Implementation
	Path          string
	EnvFlags      EnvFlag
	MaxNamespaces uint32
	// Namespace is the initial namespace of named engines (lmdb, memory)
	Namespace string
	// DBNum is the initial database id of numeric engines (upscaledb)
	DBNum uint16
}

// DefaultConfig returns a writable config that creates missing storage.
func DefaultConfig(backend Implementation, path string) Config {
	return Config{
		Backend:       backend,
		Path:          path,
		EnvFlags:      EnvCreateIfMissing,
		MaxNamespaces: DefaultMaxNamespaces,
		Namespace:     DefaultNamespace,
		DBNum:         DefaultDBNum,
	}
}

// WithDefaults fills unset fields with their defaults.
func (c Config) WithDefaults() Config {
	if c.MaxNamespaces == 0 {
		c.MaxNamespaces = DefaultMaxNamespaces
	}
	if c.Namespace == "" {
		c.Namespace = DefaultNamespace
	}
	if c.DBNum == 0 {
		c.DBNum = DefaultDBNum
	}
	return c
}

// ReadOnly reports whether EnvReadOnly is set.
func (c Config) ReadOnly() bool { return c.EnvFlags.Has(EnvReadOnly) }

// CreateIfMissing reports whether EnvCreateIfMissing is set.
func (c Config) CreateIfMissing() bool { return c.EnvFlags.Has(EnvCreateIfMissing) }

// InitialNamespace returns the label the engine selects on open.
func (c Config) InitialNamespace() string {
	if c.Backend == ImplUpscaleDB {
		return strconv.FormatUint(uint64(c.DBNum), 10)
	}
	return c.Namespace
}

// Param returns a configuration value by its CONFIG GET name.
// The boolean is false if the parameter is unknown.
func (c Config) Param(name string) (string, bool) {
	switch strings.ToLower(name) {
	case "backend":
		return string(c.Backend), true
	case "path":
		return c.Path, true
	case "maxnamespaces":
		return strconv.FormatUint(uint64(c.MaxNamespaces), 10), true
	case "readonly":
		return strconv.FormatBool(c.ReadOnly()), true
	case "flags":
		return c.EnvFlags.String(), true
	case "namespace":
		return c.InitialNamespace(), true
	default:
		return "", false
	}
}

// String returns a formatted string representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Database")
	addField("Backend", string(c.Backend))
	addField("Path", c.Path)
	addField("Flags", c.EnvFlags.String())
	addField("Max Namespaces", strconv.FormatUint(uint64(c.MaxNamespaces), 10))
	addField("Initial Namespace", c.InitialNamespace())

	return sb.String()
}
