package command

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ValentinKolb/eKV/lib/db"
)

// defaultScanCount is the page size of SCAN without a COUNT option
const defaultScanCount = 10

// --------------------------------------------------------------------------
// Argument Parsing
// --------------------------------------------------------------------------

func parseUint(cmd, what, s string) (uint64, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, db.NewError(db.KindInvalidArgument, cmd, fmt.Sprintf("invalid %s: %q", what, s))
	}
	return n, nil
}

// scanOptions parses "cursor [MATCH pattern] [COUNT count]" with the options
// in any order. A later option overrides an earlier one.
func scanOptions(args []string) (cursor uint64, pattern string, count uint64, err error) {
	cursor, err = parseUint("SCAN", "cursor", args[0])
	if err != nil {
		return 0, "", 0, err
	}
	pattern, count = "*", defaultScanCount

	opts := args[1:]
	if len(opts)%2 != 0 {
		return 0, "", 0, db.NewError(db.KindInvalidArgument, "SCAN", "syntax error")
	}
	for i := 0; i < len(opts); i += 2 {
		switch strings.ToUpper(opts[i]) {
		case "MATCH":
			pattern = opts[i+1]
		case "COUNT":
			if count, err = parseUint("SCAN", "count", opts[i+1]); err != nil {
				return 0, "", 0, err
			}
		default:
			return 0, "", 0, db.NewError(db.KindInvalidArgument, "SCAN", fmt.Sprintf("syntax error near %q", opts[i]))
		}
	}
	return cursor, pattern, count, nil
}

func toBytes(args []string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}

// --------------------------------------------------------------------------
// Server Commands
// --------------------------------------------------------------------------

func (d *Dispatcher) help(args []string) (Reply, error) {
	if len(args) == 0 {
		cmds := d.table.Commands()
		lines := make([]Reply, len(cmds))
		for i, c := range cmds {
			lines[i] = Status(fmt.Sprintf("%s - %s", c.Usage(), c.Summary))
		}
		return Array(lines...), nil
	}

	name := strings.Join(args, " ")
	c, ok := d.table.Lookup(name)
	if !ok {
		return Nil(), db.NewError(db.KindInvalidArgument, "HELP", fmt.Sprintf("unknown command '%s'", name))
	}

	arity := strconv.Itoa(c.MinArgs)
	switch {
	case c.MaxArgs == Unlimited:
		arity += " or more"
	case c.MaxArgs != c.MinArgs:
		arity = fmt.Sprintf("%d to %d", c.MinArgs, c.MaxArgs)
	}
	lines := []Reply{
		Status(c.Usage()),
		Status("summary: " + c.Summary),
		Status("arguments: " + arity),
	}
	if len(c.Aliases) > 0 {
		lines = append(lines, Status("aliases: "+strings.Join(c.Aliases, ", ")))
	}
	return Array(lines...), nil
}

// info renders the sections server, keyspace and metadata.
func (d *Dispatcher) info(args []string) (Reply, error) {
	section := "all"
	if len(args) == 1 {
		section = strings.ToLower(args[0])
	}
	switch section {
	case "all", "server", "keyspace", "metadata":
	default:
		return Nil(), db.NewError(db.KindInvalidArgument, "INFO", fmt.Sprintf("unknown section '%s'", args[0]))
	}

	info, err := d.conn.Info()
	if err != nil {
		return Nil(), err
	}

	var sb strings.Builder
	field := func(name string, value any) {
		sb.WriteString(fmt.Sprintf("%s:%v\r\n", name, value))
	}
	want := func(s string) bool { return section == "all" || section == s }

	if want("server") {
		features := make([]string, len(info.SupportedFeatures))
		for i, f := range info.SupportedFeatures {
			features[i] = f.String()
		}
		sb.WriteString("# Server\r\n")
		field("db_type", info.DbType)
		field("based_on", info.BasedOn)
		field("path", info.Path)
		field("read_only", info.ReadOnly)
		field("features", strings.Join(features, ","))
	}
	if want("keyspace") {
		count, err := d.conn.DBKCount()
		if err != nil {
			return Nil(), err
		}
		sb.WriteString("# Keyspace\r\n")
		field("current_namespace", info.CurrentNamespace)
		field("keys", count)
	}
	if want("metadata") && info.Metadata != nil {
		raw, err := json.Marshal(info.Metadata)
		if err != nil {
			return Nil(), db.WrapError(db.KindEngineError, "INFO", err)
		}
		sb.WriteString("# Metadata\r\n")
		field("metadata", string(raw))
	}
	return String([]byte(sb.String())), nil
}

// configGet returns the namespace list for "databases" and a name/value
// pair for every other known parameter.
func (d *Dispatcher) configGet(args []string) (Reply, error) {
	param := strings.ToLower(args[0])
	if param == "databases" {
		names, err := d.conn.ConfigGetDatabases()
		if err != nil {
			return Nil(), err
		}
		items := make([][]byte, len(names))
		for i, n := range names {
			items[i] = []byte(n)
		}
		return Strings(items), nil
	}

	value, ok := d.conn.Config().Param(param)
	if !ok {
		return Array(), nil
	}
	return Array(String([]byte(param)), String([]byte(value))), nil
}

func (d *Dispatcher) quit(_ []string) (Reply, error) {
	if err := d.conn.Close(); err != nil {
		return Nil(), err
	}
	return OK(), nil
}

// --------------------------------------------------------------------------
// Keyspace Commands
// --------------------------------------------------------------------------

func (d *Dispatcher) scan(args []string) (Reply, error) {
	cursor, pattern, count, err := scanOptions(args)
	if err != nil {
		return Nil(), err
	}
	keys, next, err := d.conn.Scan(cursor, pattern, count)
	if err != nil {
		return Nil(), err
	}
	return Array(String([]byte(strconv.FormatUint(next, 10))), Strings(keys)), nil
}

func (d *Dispatcher) keys(args []string) (Reply, error) {
	limit, err := parseUint("KEYS", "limit", args[2])
	if err != nil {
		return Nil(), err
	}
	keys, err := d.conn.Keys([]byte(args[0]), []byte(args[1]), limit)
	if err != nil {
		return Nil(), err
	}
	return Strings(keys), nil
}

func (d *Dispatcher) dbkcount(_ []string) (Reply, error) {
	n, err := d.conn.DBKCount()
	if err != nil {
		return Nil(), err
	}
	return Integer(int64(n)), nil
}

func (d *Dispatcher) flushdb(args []string) (Reply, error) {
	if len(args) == 1 {
		// both modes flush synchronously
		switch strings.ToUpper(args[0]) {
		case "ASYNC", "SYNC":
		default:
			return Nil(), db.NewError(db.KindInvalidArgument, "FLUSHDB", "syntax error")
		}
	}
	if err := d.conn.FlushDB(); err != nil {
		return Nil(), err
	}
	return OK(), nil
}

func (d *Dispatcher) selectDB(args []string) (Reply, error) {
	info, err := d.conn.Select(args[0])
	if err != nil {
		return Nil(), err
	}
	Logger.Debugf("selected %s (%d keys)", info.Name, info.KeyCount)
	return OK(), nil
}

// --------------------------------------------------------------------------
// Key Commands
// --------------------------------------------------------------------------

func (d *Dispatcher) set(args []string) (Reply, error) {
	if err := d.conn.Set([]byte(args[0]), []byte(args[1])); err != nil {
		return Nil(), err
	}
	return OK(), nil
}

func (d *Dispatcher) get(args []string) (Reply, error) {
	value, err := d.conn.Get([]byte(args[0]))
	if err != nil {
		return Nil(), err
	}
	return String(value), nil
}

func (d *Dispatcher) rename(args []string) (Reply, error) {
	if err := d.conn.Rename([]byte(args[0]), []byte(args[1])); err != nil {
		return Nil(), err
	}
	return OK(), nil
}

// del removes every given key it can and replies with the number removed.
func (d *Dispatcher) del(args []string) (Reply, error) {
	if !d.conn.IsConnected() {
		return Nil(), db.NotConnectedError("DEL")
	}
	deleted := d.conn.DeleteMany(toBytes(args))
	return Integer(int64(len(deleted))), nil
}

func (d *Dispatcher) ttl(args []string) (Reply, error) {
	seconds, err := d.conn.GetTTL([]byte(args[0]))
	if err != nil {
		return Nil(), err
	}
	return Integer(seconds), nil
}

func (d *Dispatcher) expire(args []string) (Reply, error) {
	seconds, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return Nil(), db.NewError(db.KindInvalidArgument, "EXPIRE", fmt.Sprintf("invalid seconds: %q", args[1]))
	}
	if err := d.conn.SetTTL([]byte(args[0]), seconds); err != nil {
		return Nil(), err
	}
	return Integer(1), nil
}
