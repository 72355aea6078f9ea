package command

import (
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/shlex"
	"github.com/lni/dragonboat/v4/logger"
)

// Logger is the logger of the command layer
var Logger = logger.GetLogger("command")

// Executor runs tokenized commands. It is implemented by the local Dispatcher
// and by the rpc client.
type Executor interface {
	// Execute runs one command. args[0] is the command name.
	Execute(args []string) (Reply, error)
	// Close releases the underlying connection.
	Close() error
}

// ExecuteLine splits line with shell quoting rules and executes it.
func ExecuteLine(e Executor, line string) (Reply, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return Nil(), db.NewError(db.KindInvalidArgument, "", fmt.Sprintf("invalid command line: %v", err))
	}
	return e.Execute(args)
}

// --------------------------------------------------------------------------
// Dispatcher
// --------------------------------------------------------------------------

// Dispatcher executes commands against one connection using the command
// table of the connection's backend.
//
// Thread-safety: not safe for concurrent use, like the connection itself.
type Dispatcher struct {
	conn  db.KVDB
	table *Table
}

// NewDispatcher creates a dispatcher for conn.
func NewDispatcher(conn db.KVDB) (*Dispatcher, error) {
	table, ok := TableFor(conn.Backend())
	if !ok {
		return nil, db.NewError(db.KindNotSupported, "", fmt.Sprintf("no command table for backend %q", conn.Backend()))
	}
	return &Dispatcher{conn: conn, table: table}, nil
}

// Conn returns the underlying connection.
func (d *Dispatcher) Conn() db.KVDB {
	return d.conn
}

// Table returns the command table in use.
func (d *Dispatcher) Table() *Table {
	return d.table
}

// Close closes the connection.
func (d *Dispatcher) Close() error {
	return d.conn.Close()
}

// Resolve finds the command addressed by args and returns it together with
// its arguments. Two word commands (CONFIG GET) are matched first.
func (d *Dispatcher) Resolve(args []string) (*Info, []string, error) {
	if len(args) == 0 {
		return nil, nil, db.NewError(db.KindInvalidArgument, "", "empty command")
	}
	if len(args) > 1 {
		if c, ok := d.table.Lookup(args[0] + " " + args[1]); ok {
			return c, args[2:], nil
		}
	}
	c, ok := d.table.Lookup(args[0])
	if !ok {
		return nil, nil, db.NewError(db.KindInvalidArgument, "", fmt.Sprintf("unknown command '%s'", args[0]))
	}
	return c, args[1:], nil
}

// Execute runs one command. Arity is checked against the table before the
// connection is touched.
func (d *Dispatcher) Execute(args []string) (Reply, error) {
	start := time.Now()

	c, rest, err := d.Resolve(args)
	if err != nil {
		d.record("unknown", start, err)
		return Nil(), err
	}
	if !c.acceptsArgs(len(rest)) {
		err = db.NewError(db.KindInvalidArgument, c.Name, "wrong number of arguments")
		d.record(c.Name, start, err)
		return Nil(), err
	}

	reply, err := c.handler(d, rest)
	d.record(c.Name, start, err)
	if err != nil {
		Logger.Debugf("%s failed on %s: %v", c.Name, d.table.Backend, err)
		return Nil(), err
	}
	return reply, nil
}

// record updates the command metrics.
func (d *Dispatcher) record(name string, start time.Time, err error) {
	label := strings.ToLower(strings.ReplaceAll(name, " ", "_"))
	metrics.GetOrCreateCounter(fmt.Sprintf(`ekv_commands_total{command=%q,backend=%q}`, label, d.table.Backend)).Inc()
	metrics.GetOrCreateHistogram(fmt.Sprintf(`ekv_command_duration_seconds{command=%q}`, label)).UpdateDuration(start)
	if err != nil {
		metrics.GetOrCreateCounter(fmt.Sprintf(`ekv_command_errors_total{command=%q,backend=%q,kind=%q}`,
			label, d.table.Backend, db.KindOf(err))).Inc()
	}
}
