package network

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"trench_war_server/logic"
)

func dialTestServer(t *testing.T, th *testHub) func() *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(th.handler, 64, w, r)
	}))
	t.Cleanup(srv.Close)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	return func() *websocket.Conn {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}
}

func readKind(t *testing.T, conn *websocket.Conn, kind string) wireMsg {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, b, err := conn.ReadMessage()
		require.NoError(t, err)
		var m wireMsg
		require.NoError(t, json.Unmarshal(b, &m))
		if m.Type == kind {
			return m
		}
	}
}

func TestWebsocketSessionFlow(t *testing.T) {
	th := newTestHub(t)
	dial := dialTestServer(t, th)

	a := dial()
	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	readKind(t, a, KindPong)

	require.NoError(t, a.WriteMessage(websocket.TextMessage, []byte(`{"type":"create_session","token":"tok-a"}`)))
	code := readKind(t, a, KindSessionCreated).Code

	b := dial()
	require.NoError(t, b.WriteMessage(websocket.TextMessage, []byte(`{"type":"join_session","token":"tok-b","code":"`+code+`"}`)))
	require.Equal(t, logic.SideAxis, readKind(t, b, KindGameStart).Side)
	require.Equal(t, logic.SideAllies, readKind(t, a, KindGameStart).Side)
	readKind(t, b, KindState)

	require.NoError(t, b.Close())
	require.Eventually(t, func() bool { return !th.dir.IsLive("tok-b") }, 2*time.Second, 10*time.Millisecond)

	s, ok := th.registry.Get(code)
	require.True(t, ok)
	require.Len(t, s.Members(), 2, "disconnect keeps membership")

	b2 := dial()
	require.NoError(t, b2.WriteMessage(websocket.TextMessage, []byte(`{"type":"rejoin","token":"tok-b"}`)))
	require.Equal(t, logic.SideAxis, readKind(t, b2, KindGameStart).Side)
	readKind(t, b2, KindState)
}

func TestClientSendAfterClose(t *testing.T) {
	c := &Client{id: "c1", send: make(chan []byte, 1)}
	require.NoError(t, c.Send([]byte("one")))
	require.ErrorIs(t, c.Send([]byte("two")), ErrSendBufferFull)

	c.close()
	c.close()
	require.ErrorIs(t, c.Send([]byte("three")), ErrClientClosed)
}

func TestWebsocketCloseUnbindsEveryToken(t *testing.T) {
	th := newTestHub(t)
	dial := dialTestServer(t, th)

	conn := dial()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"create_session","token":"tok-a"}`)))
	readKind(t, conn, KindSessionCreated)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"create_session","token":"tok-b"}`)))
	readKind(t, conn, KindSessionCreated)
	require.True(t, th.dir.IsLive("tok-a"))
	require.True(t, th.dir.IsLive("tok-b"))

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return !th.dir.IsLive("tok-a") && !th.dir.IsLive("tok-b")
	}, 2*time.Second, 10*time.Millisecond)
}
