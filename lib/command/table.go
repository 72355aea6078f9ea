package command

import (
	"sort"
	"strings"

	"github.com/ValentinKolb/eKV/lib/db"
)

// Unlimited marks a command without an upper argument bound
const Unlimited = -1

type handlerFunc func(d *Dispatcher, args []string) (Reply, error)

// Info describes one command of a table. MinArgs and MaxArgs count the
// arguments after the command name.
type Info struct {
	Name    string
	Params  string
	Summary string
	MinArgs int
	MaxArgs int
	Aliases []string

	handler handlerFunc
}

// Usage returns the name followed by the parameter synopsis.
func (i *Info) Usage() string {
	if i.Params == "" || i.Params == "-" {
		return i.Name
	}
	return i.Name + " " + i.Params
}

// acceptsArgs reports whether n arguments are within the bounds.
func (i *Info) acceptsArgs(n int) bool {
	return n >= i.MinArgs && (i.MaxArgs == Unlimited || n <= i.MaxArgs)
}

// Table is the command set of one backend. Tables are built once at package
// init and never modified afterwards.
type Table struct {
	Backend  db.Implementation
	commands []*Info
	byName   map[string]*Info
}

func newTable(backend db.Implementation, commands []*Info) *Table {
	t := &Table{
		Backend:  backend,
		commands: commands,
		byName:   make(map[string]*Info, len(commands)*2),
	}
	for _, c := range commands {
		t.byName[c.Name] = c
		for _, alias := range c.Aliases {
			t.byName[alias] = c
		}
	}
	return t
}

// Lookup finds a command by name or alias, ignoring case.
func (t *Table) Lookup(name string) (*Info, bool) {
	c, ok := t.byName[strings.ToUpper(name)]
	return c, ok
}

// Commands returns all commands sorted by name.
func (t *Table) Commands() []*Info {
	out := make([]*Info, len(t.commands))
	copy(out, t.commands)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --------------------------------------------------------------------------
// Command Tables
// --------------------------------------------------------------------------

var tables = map[db.Implementation]*Table{}

// TableFor returns the command table of a backend.
func TableFor(backend db.Implementation) (*Table, bool) {
	t, ok := tables[backend]
	return t, ok
}

func init() {
	for _, impl := range db.Implementations {
		tables[impl] = newTable(impl, commandsFor(impl))
	}
}

// commandsFor builds the command set of a backend. All backends share the
// vocabulary, only the namespace addressing differs.
func commandsFor(backend db.Implementation) []*Info {
	selectParams, selectSummary := "<name>", "Change the selected database for the current connection"
	if backend == db.ImplUpscaleDB {
		selectParams = "<num>"
		selectSummary = "Change the selected database (1-65535) for the current connection"
	}

	return []*Info{
		{Name: "HELP", Params: "[command]", Summary: "Return how to use command",
			MinArgs: 0, MaxArgs: 2, handler: (*Dispatcher).help},
		{Name: "INFO", Params: "[section]", Summary: "These command return database information.",
			MinArgs: 0, MaxArgs: 1, handler: (*Dispatcher).info},
		{Name: "CONFIG GET", Params: "<parameter>", Summary: "Get the value of a configuration parameter",
			MinArgs: 1, MaxArgs: 1, handler: (*Dispatcher).configGet},
		{Name: "SCAN", Params: "<cursor> [MATCH pattern] [COUNT count]", Summary: "Incrementally iterate the keys space",
			MinArgs: 1, MaxArgs: 5, handler: (*Dispatcher).scan},
		{Name: "KEYS", Params: "<key_start> <key_end> <limit>", Summary: "Find all keys matching the given limits.",
			MinArgs: 3, MaxArgs: 3, handler: (*Dispatcher).keys},
		{Name: "DBKCOUNT", Params: "-", Summary: "Return the number of keys in the selected database",
			MinArgs: 0, MaxArgs: 0, handler: (*Dispatcher).dbkcount},
		{Name: "FLUSHDB", Params: "[ASYNC|SYNC]", Summary: "Remove all keys from the current database",
			MinArgs: 0, MaxArgs: 1, handler: (*Dispatcher).flushdb},
		{Name: "SELECT", Params: selectParams, Summary: selectSummary,
			MinArgs: 1, MaxArgs: 1, handler: (*Dispatcher).selectDB},
		{Name: "SET", Params: "<key> <value>", Summary: "Set the value of a key.",
			MinArgs: 2, MaxArgs: 2, handler: (*Dispatcher).set},
		{Name: "GET", Params: "<key>", Summary: "Get the value of a key.",
			MinArgs: 1, MaxArgs: 1, handler: (*Dispatcher).get},
		{Name: "RENAME", Params: "<key> <newkey>", Summary: "Rename a key",
			MinArgs: 2, MaxArgs: 2, handler: (*Dispatcher).rename},
		{Name: "DELETE", Params: "<key> [key ...]", Summary: "Delete key.", Aliases: []string{"DEL"},
			MinArgs: 1, MaxArgs: Unlimited, handler: (*Dispatcher).del},
		{Name: "TTL", Params: "<key>", Summary: "Get the time to live for a key in seconds",
			MinArgs: 1, MaxArgs: 1, handler: (*Dispatcher).ttl},
		{Name: "EXPIRE", Params: "<key> <seconds>", Summary: "Set a key's time to live in seconds",
			MinArgs: 2, MaxArgs: 2, handler: (*Dispatcher).expire},
		{Name: "QUIT", Params: "-", Summary: "Close the connection",
			MinArgs: 0, MaxArgs: 0, handler: (*Dispatcher).quit},
	}
}
