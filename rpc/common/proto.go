package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Args []string `json:"args,omitempty"` // Used for: Command (request)

	// Response fields
	Reply   *command.Reply `json:"reply,omitempty"`    // Used for: Command (response)
	Err     string         `json:"err,omitempty"`      // Empty if no error, otherwise contains the error message
	ErrKind db.ErrorKind   `json:"err_kind,omitempty"` // Kind of Err, so the client can restore it

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Ping (server name and version)
}

// Error restores the error carried by a response, or nil.
func (m *Message) Error() error {
	if m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	msg := m.Err
	if msg == "" {
		msg = "unknown error"
	}
	return db.NewError(m.ErrKind, "", msg)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewCommandRequest creates a new Command request
func NewCommandRequest(args []string) *Message {
	return &Message{
		MsgType: MsgTCommand,
		Args:    args,
	}
}

// NewCommandResponse creates a new Command response
func NewCommandResponse(reply command.Reply, err error) *Message {
	msg := &Message{
		MsgType: MsgTCommand,
	}
	if err != nil {
		msg.Err = err.Error()
		msg.ErrKind = db.KindOf(err)
		return msg
	}
	msg.Reply = &reply
	return msg
}

// NewPingRequest creates a new Ping request
func NewPingRequest() *Message {
	return &Message{
		MsgType: MsgTPing,
	}
}

// NewPingResponse creates a new Ping response
func NewPingResponse(meta []byte) *Message {
	return &Message{
		MsgType: MsgTPing,
		Meta:    meta,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(kind db.ErrorKind, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Err:     err,
		ErrKind: kind,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTCommand:
		return "command"
	case MsgTPing:
		return "ping"
	case MsgTError:
		return "error"
	case MsgTSuccess:
		return "success"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "command":
		*t = MsgTCommand
	case "ping":
		*t = MsgTPing
	case "error":
		*t = MsgTError
	case "success":
		*t = MsgTSuccess
	case "unknown":
		*t = MsgTUnknown
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// Connection operations

	MsgTCommand // Execute one tokenized command
	MsgTPing    // Check that the server and the connection exist
)
