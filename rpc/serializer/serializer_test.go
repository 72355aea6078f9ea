package serializer

import (
	"testing"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

func replyPtr(r command.Reply) *command.Reply {
	return &r
}

// testMessages creates a set of test messages with different fields filled.
// Empty (but not nil) slices are left out, gob and json do not keep them apart.
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Command request
		{
			MsgType: common.MsgTCommand,
			Args:    []string{"SET", "greeting", "hello world"},
		},

		// Status response
		{
			MsgType: common.MsgTCommand,
			Reply:   replyPtr(command.OK()),
		},

		// SCAN style response with binary data
		{
			MsgType: common.MsgTCommand,
			Reply: replyPtr(command.Array(
				command.String([]byte("10")),
				command.Strings([][]byte{[]byte("a"), {0x00, 0xff, 0x10}}),
				command.Integer(-5),
			)),
		},

		// Error response
		{
			MsgType: common.MsgTCommand,
			Err:     "GET function error: key not found",
			ErrKind: db.KindNotFound,
		},

		// Ping response
		{
			MsgType: common.MsgTPing,
			Meta:    []byte("ekv"),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				require.NoError(t, err, "serialize message %d", i)

				var result common.Message
				require.NoError(t, serializer.Deserialize(data, &result), "deserialize message %d", i)
				assert.Equal(t, msg, result, "message %d after round trip", i)
			}
		})
	}
}

// TestDeserializeResetsMessage makes sure no field of a reused message survives
func TestDeserializeResetsMessage(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			data, err := serializer.Serialize(common.Message{MsgType: common.MsgTPing})
			require.NoError(t, err)

			reused := common.Message{MsgType: common.MsgTCommand, Args: []string{"GET", "k"}, Err: "old"}
			require.NoError(t, serializer.Deserialize(data, &reused))
			assert.Equal(t, common.Message{MsgType: common.MsgTPing}, reused)
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for msgType := common.MsgTSuccess; msgType <= common.MsgTPing; msgType++ {
				msg := common.Message{MsgType: msgType}

				data, err := serializer.Serialize(msg)
				require.NoError(t, err, "serialize %s", msgType)

				var result common.Message
				require.NoError(t, serializer.Deserialize(data, &result), "deserialize %s", msgType)
				assert.Equal(t, msgType, result.MsgType)
			}
		})
	}
}

// TestBinarySerializerSpecific tests edge cases only the binary format keeps apart
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{name: "Empty message", msg: common.Message{}},
		{name: "Empty args slice", msg: common.Message{MsgType: common.MsgTCommand, Args: []string{}}},
		{name: "Empty argument", msg: common.Message{MsgType: common.MsgTCommand, Args: []string{"SET", "k", ""}}},
		{name: "Empty string reply", msg: common.Message{MsgType: common.MsgTCommand, Reply: replyPtr(command.String(nil))}},
		{name: "Nil reply", msg: common.Message{MsgType: common.MsgTCommand, Reply: replyPtr(command.Nil())}},
		{name: "Empty array reply", msg: common.Message{MsgType: common.MsgTCommand, Reply: replyPtr(command.Array())}},
		{name: "Empty meta", msg: common.Message{MsgType: common.MsgTPing, Meta: []byte{}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			require.NoError(t, err)

			var result common.Message
			require.NoError(t, serializer.Deserialize(data, &result))
			assert.Equal(t, tc.msg, result)
		})
	}
}

// TestBinaryReplyDepth tests that deeply nested replies are rejected
func TestBinaryReplyDepth(t *testing.T) {
	reply := command.Integer(1)
	for i := 0; i <= maxReplyDepth; i++ {
		reply = command.Array(reply)
	}
	_, err := NewBinarySerializer().Serialize(common.Message{Reply: &reply})
	assert.Error(t, err, "reply nested %d levels deep", maxReplyDepth+1)
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{name: "Empty data", data: []byte{}, expectError: true},
		{name: "Too short header", data: []byte{1}, expectError: true},
		{name: "Valid header only", data: []byte{1, 0}, expectError: false},
		{name: "Args count too large", data: []byte{3, 1, 0, 0, 0, 5}, expectError: true},
		{name: "Arg longer than data", data: []byte{3, 1, 0, 0, 0, 1, 0, 0, 0, 5, 'a'}, expectError: true},
		{name: "Unknown reply type", data: []byte{3, 2, 9}, expectError: true},
		{name: "Truncated integer reply", data: []byte{3, 2, 3, 0, 0}, expectError: true},
		{name: "Invalid length for error", data: []byte{2, 4, 0, 0, 0, 10}, expectError: true},
		{name: "Missing error kind", data: []byte{2, 8}, expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"binary", "json", "gob"} {
		_, err := ByName(name)
		assert.NoError(t, err, name)
	}
	_, err := ByName("xml")
	assert.Error(t, err)
}
