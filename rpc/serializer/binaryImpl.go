package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasArgs    byte = 1 << 0
	hasReply   byte = 1 << 1
	hasErr     byte = 1 << 2
	hasErrKind byte = 1 << 3
	hasMeta    byte = 1 << 4
)

// maxReplyDepth bounds the nesting of array replies
const maxReplyDepth = 32

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

// Serialize writes the message as
//
//	msg_type u8 | flags u8 | [args] | [reply] | [err] | [err_kind u8] | [meta]
//
// All lengths are big endian u32. A reply is its type byte followed by the
// data (status, string), an int64 (integer) or the element count and the
// elements (array).
func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, 2, b.sizeBytes(msg))
	result[0] = byte(msg.MsgType)

	var flags byte

	if msg.Args != nil {
		flags |= hasArgs
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Args)))
		for _, arg := range msg.Args {
			result = appendBytes(result, []byte(arg))
		}
	}

	if msg.Reply != nil {
		flags |= hasReply
		var err error
		if result, err = appendReply(result, *msg.Reply, 0); err != nil {
			return nil, err
		}
	}

	if msg.Err != "" {
		flags |= hasErr
		result = appendBytes(result, []byte(msg.Err))
	}

	if msg.ErrKind != db.KindUnknown {
		flags |= hasErrKind
		result = append(result, byte(msg.ErrKind))
	}

	if msg.Meta != nil {
		flags |= hasMeta
		result = appendBytes(result, msg.Meta)
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < 2 {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{MsgType: common.MessageType(data[0])}
	flags := data[1]
	r := &reader{data: data, pos: 2}

	if flags&hasArgs != 0 {
		n, err := r.uint32("args count")
		if err != nil {
			return err
		}
		if int(n) > r.remaining()/4 {
			return fmt.Errorf("data too short for %d args", n)
		}
		msg.Args = make([]string, n)
		for i := range msg.Args {
			arg, err := r.bytes("arg")
			if err != nil {
				return err
			}
			msg.Args[i] = string(arg)
		}
	}

	if flags&hasReply != 0 {
		reply, err := r.reply(0)
		if err != nil {
			return err
		}
		msg.Reply = &reply
	}

	if flags&hasErr != 0 {
		e, err := r.bytes("error")
		if err != nil {
			return err
		}
		msg.Err = string(e)
	}

	if flags&hasErrKind != 0 {
		k, err := r.uint8("error kind")
		if err != nil {
			return err
		}
		msg.ErrKind = db.ErrorKind(k)
	}

	if flags&hasMeta != 0 {
		meta, err := r.bytes("meta")
		if err != nil {
			return err
		}
		msg.Meta = meta
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes estimates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// 1 byte for MsgType + 1 byte for flags
	size := 2

	if msg.Args != nil {
		size += 4
		for _, arg := range msg.Args {
			size += 4 + len(arg)
		}
	}
	if msg.Reply != nil {
		size += replySize(*msg.Reply)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.ErrKind != db.KindUnknown {
		size++
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}

func replySize(r command.Reply) int {
	switch r.Type {
	case command.ReplyStatus, command.ReplyString:
		return 1 + 4 + len(r.Data)
	case command.ReplyInteger:
		return 1 + 8
	case command.ReplyArray:
		size := 1 + 4
		for _, e := range r.Elems {
			size += replySize(e)
		}
		return size
	default:
		return 1
	}
}

func appendBytes(dst, b []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

func appendReply(dst []byte, r command.Reply, depth int) ([]byte, error) {
	if depth > maxReplyDepth {
		return nil, fmt.Errorf("reply nested deeper than %d levels", maxReplyDepth)
	}
	dst = append(dst, byte(r.Type))
	switch r.Type {
	case command.ReplyNil:
	case command.ReplyStatus, command.ReplyString:
		dst = appendBytes(dst, r.Data)
	case command.ReplyInteger:
		dst = binary.BigEndian.AppendUint64(dst, uint64(r.Int))
	case command.ReplyArray:
		dst = binary.BigEndian.AppendUint32(dst, uint32(len(r.Elems)))
		for _, e := range r.Elems {
			var err error
			if dst, err = appendReply(dst, e, depth+1); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unknown reply type %d", r.Type)
	}
	return dst, nil
}

// reader consumes a serialized message
type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) uint8(what string) (uint8, error) {
	if r.remaining() < 1 {
		return 0, fmt.Errorf("data too short for %s", what)
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *reader) uint32(what string) (uint32, error) {
	if r.remaining() < 4 {
		return 0, fmt.Errorf("data too short for %s length", what)
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) uint64(what string) (uint64, error) {
	if r.remaining() < 8 {
		return 0, fmt.Errorf("data too short for %s", what)
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// bytes reads a length prefixed field. The result is a copy and never nil.
func (r *reader) bytes(what string) ([]byte, error) {
	n, err := r.uint32(what)
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(r.remaining()) {
		return nil, fmt.Errorf("data too short for %s data", what)
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *reader) reply(depth int) (command.Reply, error) {
	if depth > maxReplyDepth {
		return command.Reply{}, fmt.Errorf("reply nested deeper than %d levels", maxReplyDepth)
	}
	t, err := r.uint8("reply type")
	if err != nil {
		return command.Reply{}, err
	}
	reply := command.Reply{Type: command.ReplyType(t)}
	switch reply.Type {
	case command.ReplyNil:
	case command.ReplyStatus, command.ReplyString:
		if reply.Data, err = r.bytes("reply"); err != nil {
			return command.Reply{}, err
		}
	case command.ReplyInteger:
		v, err := r.uint64("reply integer")
		if err != nil {
			return command.Reply{}, err
		}
		reply.Int = int64(v)
	case command.ReplyArray:
		n, err := r.uint32("reply array")
		if err != nil {
			return command.Reply{}, err
		}
		// every element needs at least its type byte
		if int64(n) > int64(r.remaining()) {
			return command.Reply{}, fmt.Errorf("data too short for %d reply elements", n)
		}
		reply.Elems = make([]command.Reply, n)
		for i := range reply.Elems {
			if reply.Elems[i], err = r.reply(depth + 1); err != nil {
				return command.Reply{}, err
			}
		}
	default:
		return command.Reply{}, fmt.Errorf("unknown reply type %d", t)
	}
	return reply, nil
}
