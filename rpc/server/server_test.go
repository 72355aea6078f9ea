package server

import (
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/eKV/lib/command"
	"github.com/ValentinKolb/eKV/lib/db"
	"github.com/ValentinKolb/eKV/rpc/client"
	"github.com/ValentinKolb/eKV/rpc/common"
	"github.com/ValentinKolb/eKV/rpc/serializer"
	"github.com/ValentinKolb/eKV/rpc/transport"
	httptransport "github.com/ValentinKolb/eKV/rpc/transport/http"
	"github.com/ValentinKolb/eKV/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServerConfig(t *testing.T, endpoint string) common.ServerConfig {
	lmdbCfg := db.DefaultConfig(db.ImplLMDB, filepath.Join(t.TempDir(), "lmdb"))
	lmdbCfg.EnvFlags |= db.EnvNoSync

	return common.ServerConfig{
		Connections: []common.ServerConnection{
			{ID: 1, Config: db.DefaultConfig(db.ImplMemory, "")},
			{ID: 2, Config: lmdbCfg},
		},
		TimeoutSecond: 5,
		Transport: common.TransportConfig{
			Endpoint:       endpoint,
			WorkersPerConn: 4,
		},
	}
}

// request sends one message through the handler and decodes the answer
func request(t *testing.T, s *RPCServer, connID uint64, msg *common.Message) *common.Message {
	t.Helper()
	req, err := s.serializer.Serialize(*msg)
	require.NoError(t, err)

	var resp common.Message
	require.NoError(t, s.serializer.Deserialize(s.handle(connID, req), &resp))
	return &resp
}

func TestHandler(t *testing.T) {
	s := NewRPCServer(testServerConfig(t, ""), unix.NewUnixServerTransport(), serializer.NewBinarySerializer())
	require.NoError(t, s.init())
	t.Cleanup(func() { _ = s.closeConnections() })

	t.Run("Ping", func(t *testing.T) {
		resp := request(t, s, 1, common.NewPingRequest())
		require.NoError(t, resp.Error())
		assert.Equal(t, "memory", string(resp.Meta))

		resp = request(t, s, 2, common.NewPingRequest())
		assert.Equal(t, "lmdb", string(resp.Meta))
	})

	t.Run("Commands", func(t *testing.T) {
		resp := request(t, s, 1, common.NewCommandRequest([]string{"SET", "k", "v"}))
		require.NoError(t, resp.Error())
		assert.Equal(t, command.OK(), *resp.Reply)

		resp = request(t, s, 1, common.NewCommandRequest([]string{"GET", "k"}))
		require.NoError(t, resp.Error())
		assert.Equal(t, "v", resp.Reply.Text())

		// connections are independent
		resp = request(t, s, 2, common.NewCommandRequest([]string{"GET", "k"}))
		assert.ErrorIs(t, resp.Error(), db.ErrNotFound)
	})

	t.Run("Errors", func(t *testing.T) {
		resp := request(t, s, 1, common.NewCommandRequest([]string{"NOPE"}))
		assert.ErrorIs(t, resp.Error(), db.ErrInvalidArgument)
		assert.Contains(t, resp.Err, "unknown command")

		resp = request(t, s, 1, common.NewCommandRequest([]string{"quit"}))
		assert.ErrorIs(t, resp.Error(), db.ErrNotSupported)

		resp = request(t, s, 9, common.NewPingRequest())
		assert.Equal(t, common.MsgTError, resp.MsgType)
		assert.ErrorIs(t, resp.Error(), db.ErrNotConnected)

		resp = request(t, s, 1, &common.Message{MsgType: common.MsgTSuccess})
		assert.Equal(t, common.MsgTError, resp.MsgType)

		var garbage common.Message
		require.NoError(t, s.serializer.Deserialize(s.handle(1, []byte{0xff}), &garbage))
		assert.ErrorIs(t, garbage.Error(), db.ErrInvalidArgument)
	})

	t.Run("ConnectionStaysOpen", func(t *testing.T) {
		resp := request(t, s, 1, common.NewCommandRequest([]string{"DBKCOUNT"}))
		require.NoError(t, resp.Error())
		assert.Equal(t, int64(1), resp.Reply.Int)
	})
}

func TestInitRejectsDuplicateIDs(t *testing.T) {
	cfg := testServerConfig(t, "")
	cfg.Connections[1].ID = 1
	s := NewRPCServer(cfg, unix.NewUnixServerTransport(), serializer.NewBinarySerializer())
	assert.Error(t, s.init())
	assert.Equal(t, 0, s.conns.Size())
}

// startServer runs Serve in the background and closes the server when the test ends
func startServer(t *testing.T, cfg common.ServerConfig, tr transport.IRPCServerTransport, ser serializer.IRPCSerializer) {
	s := NewRPCServer(cfg, tr, ser)
	done := make(chan error, 1)
	go func() { done <- s.Serve() }()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after Close")
		}
	})
}

// connectExecutor retries until the server accepts connections
func connectExecutor(t *testing.T, connID uint64, config common.ClientConfig, newTransport func() transport.IRPCClientTransport, ser serializer.IRPCSerializer) *client.RPCExecutor {
	var exec *client.RPCExecutor
	require.Eventually(t, func() bool {
		var err error
		exec, err = client.NewRPCExecutor(connID, config, newTransport(), ser)
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	t.Cleanup(func() { _ = exec.Close() })
	return exec
}

func TestEndToEndUnix(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ekv.sock")
	startServer(t, testServerConfig(t, socket), unix.NewUnixServerTransport(), serializer.NewBinarySerializer())

	config := common.ClientConfig{
		TimeoutSecond: 5,
		Transport: common.ClientTransportConfig{
			Endpoints:              []string{socket},
			RetryCount:             1,
			ConnectionsPerEndpoint: 2,
		},
	}
	exec := connectExecutor(t, 2, config, unix.NewUnixClientTransport, serializer.NewBinarySerializer())
	assert.Equal(t, db.ImplLMDB, exec.Backend())

	for _, line := range []string{`SET a 1`, `SET b "two words"`, `SELECT users`, `SET c 3`} {
		reply, err := command.ExecuteLine(exec, line)
		require.NoError(t, err, line)
		assert.Equal(t, command.OK(), reply)
	}

	reply, err := command.ExecuteLine(exec, "CONFIG GET databases")
	require.NoError(t, err)
	assert.Equal(t, command.Strings([][]byte{[]byte("default"), []byte("users")}), reply)

	_, err = exec.Execute([]string{"SELECT", "default"})
	require.NoError(t, err)
	reply, err = exec.Execute([]string{"SCAN", "0", "COUNT", "1"})
	require.NoError(t, err)
	require.Len(t, reply.Elems, 2)
	assert.Equal(t, "1", reply.Elems[0].Text())
	assert.Equal(t, []string{"a"}, texts(reply.Elems[1]))

	reply, err = exec.Execute([]string{"GET", "b"})
	require.NoError(t, err)
	assert.Equal(t, "two words", reply.Text())

	_, err = exec.Execute([]string{"GET", "missing"})
	assert.ErrorIs(t, err, db.ErrNotFound)

	reply, err = exec.Execute([]string{"QUIT"})
	require.NoError(t, err)
	assert.Equal(t, command.OK(), reply)

	_, err = exec.Execute([]string{"GET", "a"})
	assert.ErrorIs(t, err, db.ErrNotConnected)

	// the server side connection survives the client's QUIT
	again := connectExecutor(t, 2, config, unix.NewUnixClientTransport, serializer.NewBinarySerializer())
	reply, err = again.Execute([]string{"DBKCOUNT"})
	require.NoError(t, err)
	assert.Equal(t, command.Integer(2), reply)
}

func TestUnknownConnection(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ekv.sock")
	startServer(t, testServerConfig(t, socket), unix.NewUnixServerTransport(), serializer.NewBinarySerializer())

	config := common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{socket}, RetryCount: 1},
	}
	// wait until the server is up
	connectExecutor(t, 1, config, unix.NewUnixClientTransport, serializer.NewBinarySerializer())

	_, err := client.NewRPCExecutor(42, config, unix.NewUnixClientTransport(), serializer.NewBinarySerializer())
	assert.ErrorIs(t, err, db.ErrNotConnected)
}

func TestEndToEndHTTP(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	endpoint := listener.Addr().String()
	require.NoError(t, listener.Close())

	startServer(t, testServerConfig(t, endpoint), httptransport.NewHttpServerTransport(), serializer.NewJSONSerializer())

	config := common.ClientConfig{
		TimeoutSecond: 5,
		Transport:     common.ClientTransportConfig{Endpoints: []string{endpoint}, RetryCount: 1},
	}
	exec := connectExecutor(t, 1, config, httptransport.NewHttpClientTransport, serializer.NewJSONSerializer())

	_, err = command.ExecuteLine(exec, "SET k v")
	require.NoError(t, err)
	reply, err := command.ExecuteLine(exec, "KEYS a z 10")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, texts(reply))

	resp, err := http.Get("http://" + endpoint + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "ekv_commands_total")
	assert.Contains(t, string(body), "ekv_rpc_requests_total")
}

func texts(r command.Reply) []string {
	out := make([]string, 0, len(r.Elems))
	for _, e := range r.Elems {
		out = append(out, e.Text())
	}
	return out
}
