package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseErrorKeepsKind(t *testing.T) {
	resp := NewCommandResponse(command.Nil(), db.NewError(db.KindNotFound, "GET", "key not found"))
	assert.Nil(t, resp.Reply)

	err := resp.Error()
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrNotFound))
	assert.Equal(t, "GET function error: key not found", err.Error())

	ok := NewCommandResponse(command.OK(), nil)
	assert.NoError(t, ok.Error())
	assert.Equal(t, command.OK(), *ok.Reply)

	assert.Error(t, NewErrorResponse(db.KindUnknown, "").Error())
}

func TestMessageTypeJSON(t *testing.T) {
	for _, mt := range []MessageType{MsgTUnknown, MsgTSuccess, MsgTError, MsgTCommand, MsgTPing} {
		raw, err := json.Marshal(mt)
		require.NoError(t, err)
		var back MessageType
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, mt, back)
	}
	var mt MessageType
	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &mt))
}

func TestParseServerConnection(t *testing.T) {
	c, err := ParseServerConnection("1=lmdb:/var/lib/ekv")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.ID)
	assert.Equal(t, db.ImplLMDB, c.Config.Backend)
	assert.Equal(t, "/var/lib/ekv", c.Config.Path)

	c, err = ParseServerConnection("7=memory")
	require.NoError(t, err)
	assert.Equal(t, db.ImplMemory, c.Config.Backend)
	assert.Empty(t, c.Config.Path)

	for _, bad := range []string{"lmdb:/x", "x=lmdb:/x", "1=rocks:/x"} {
		_, err := ParseServerConnection(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseLogLevel(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error"} {
		_, err := ParseLogLevel(lvl)
		assert.NoError(t, err, lvl)
	}
	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}
