package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ReplyType tells how a Reply is interpreted and rendered.
type ReplyType uint8

const (
	ReplyNil     ReplyType = iota // no value, e.g. an empty result
	ReplyStatus                   // short status text such as OK
	ReplyString                   // binary safe string
	ReplyInteger                  // signed integer
	ReplyArray                    // nested replies
)

func (t ReplyType) String() string {
	switch t {
	case ReplyStatus:
		return "status"
	case ReplyString:
		return "string"
	case ReplyInteger:
		return "integer"
	case ReplyArray:
		return "array"
	default:
		return "nil"
	}
}

// MarshalJSON writes the type as its name.
func (t ReplyType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads a type written by MarshalJSON.
func (t *ReplyType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "nil":
		*t = ReplyNil
	case "status":
		*t = ReplyStatus
	case "string":
		*t = ReplyString
	case "integer":
		*t = ReplyInteger
	case "array":
		*t = ReplyArray
	default:
		return fmt.Errorf("unknown reply type: %s", s)
	}
	return nil
}

// Reply is the typed result of one command.
type Reply struct {
	Type  ReplyType `json:"type"`
	Data  []byte    `json:"data,omitempty"`  // Used for: status, string
	Int   int64     `json:"int,omitempty"`   // Used for: integer
	Elems []Reply   `json:"elems,omitempty"` // Used for: array
}

// --------------------------------------------------------------------------
// Reply Factory Functions
// --------------------------------------------------------------------------

// Nil creates an empty reply
func Nil() Reply {
	return Reply{Type: ReplyNil}
}

// OK is the status reply of commands without a result
func OK() Reply {
	return Status("OK")
}

// Status creates a status reply
func Status(s string) Reply {
	return Reply{Type: ReplyStatus, Data: []byte(s)}
}

// String creates a string reply holding b
func String(b []byte) Reply {
	if b == nil {
		b = []byte{}
	}
	return Reply{Type: ReplyString, Data: b}
}

// Integer creates an integer reply
func Integer(n int64) Reply {
	return Reply{Type: ReplyInteger, Int: n}
}

// Array creates an array reply
func Array(elems ...Reply) Reply {
	if elems == nil {
		elems = []Reply{}
	}
	return Reply{Type: ReplyArray, Elems: elems}
}

// Strings creates an array of string replies
func Strings(items [][]byte) Reply {
	elems := make([]Reply, len(items))
	for i, item := range items {
		elems[i] = String(item)
	}
	return Array(elems...)
}

// --------------------------------------------------------------------------
// Rendering
// --------------------------------------------------------------------------

// Text returns the raw text of a status or string reply and the decimal
// value of an integer reply.
func (r Reply) Text() string {
	if r.Type == ReplyInteger {
		return strconv.FormatInt(r.Int, 10)
	}
	return string(r.Data)
}

// Render formats the reply the way redis-cli prints it.
func (r Reply) Render() string {
	var sb strings.Builder
	r.render(&sb, "")
	return sb.String()
}

func (r Reply) render(sb *strings.Builder, indent string) {
	switch r.Type {
	case ReplyNil:
		sb.WriteString("(nil)")
	case ReplyStatus:
		sb.Write(r.Data)
	case ReplyString:
		// multi-line text (INFO, HELP) is printed as is
		if bytes.ContainsRune(r.Data, '\n') {
			sb.Write(r.Data)
			return
		}
		sb.WriteString(strconv.Quote(string(r.Data)))
	case ReplyInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	case ReplyArray:
		if len(r.Elems) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(r.Elems)))
		for i, elem := range r.Elems {
			prefix := fmt.Sprintf("%*d) ", width, i+1)
			if i > 0 {
				sb.WriteString("\n")
				sb.WriteString(indent)
			}
			sb.WriteString(prefix)
			elem.render(sb, indent+strings.Repeat(" ", len(prefix)))
		}
	}
}

func (r Reply) String() string {
	return r.Render()
}
