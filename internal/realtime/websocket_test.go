package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gymsync/internal/auth"
	"gymsync/internal/model"
)

const wsTestSecret = "ws-secret"

func newTestServer(t *testing.T, opts ...ServerOption) (*httptest.Server, *MemoryRegistry, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService(wsTestSecret)
	registry := NewMemoryRegistry()
	srv := NewServer(auth.NewVerifier(tokens, nil), registry, nil, opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts, registry, tokens
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func issue(t *testing.T, tokens *auth.TokenService) (uuid.UUID, string) {
	t.Helper()
	user := &model.User{ID: uuid.New(), Name: "Mia", Role: model.RoleMember}
	token, _, err := tokens.Issue(user)
	require.NoError(t, err)
	return user.ID, token
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}

func TestServer_AuthenticateMessageRegistersChannel(t *testing.T) {
	ts, registry, tokens := newTestServer(t)
	userID, token := issue(t, tokens)

	conn := dial(t, ts, "")
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageAuthenticate, Token: token}))
	assert.Equal(t, EventAuthenticationSuccess, readEvent(t, conn).Type)

	waitFor(t, func() bool { _, ok := registry.Lookup(userID); return ok })

	ch, ok := registry.Lookup(userID)
	require.True(t, ok)
	require.NoError(t, ch.Push(context.Background(), Event{Type: EventNotification, Data: "hello"}))
	ev := readEvent(t, conn)
	assert.Equal(t, EventNotification, ev.Type)
	assert.Equal(t, "hello", ev.Data)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessagePing}))
	assert.Equal(t, EventPong, readEvent(t, conn).Type)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	waitFor(t, func() bool { _, ok := registry.Lookup(userID); return !ok })
}

func TestServer_QueryToken(t *testing.T) {
	ts, registry, tokens := newTestServer(t)
	userID, token := issue(t, tokens)

	conn := dial(t, ts, "?token="+token)
	assert.Equal(t, EventAuthenticationSuccess, readEvent(t, conn).Type)
	waitFor(t, func() bool { _, ok := registry.Lookup(userID); return ok })
}

func TestServer_RejectsBadCredentials(t *testing.T) {
	tests := []struct {
		name string
		msg  ClientMessage
	}{
		{name: "invalid token", msg: ClientMessage{Type: MessageAuthenticate, Token: "garbage"}},
		{name: "missing token", msg: ClientMessage{Type: MessageAuthenticate}},
		{name: "wrong first message", msg: ClientMessage{Type: MessagePing}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, registry, _ := newTestServer(t)
			conn := dial(t, ts, "")
			require.NoError(t, conn.WriteJSON(tt.msg))

			assert.Equal(t, EventAuthenticationError, readEvent(t, conn).Type)
			_, _, err := conn.ReadMessage()
			assert.Error(t, err, "server closes the channel")
			assert.Zero(t, registry.Len())
		})
	}
}

func TestServer_AuthTimeout(t *testing.T) {
	ts, registry, _ := newTestServer(t, WithAuthTimeout(100*time.Millisecond))
	conn := dial(t, ts, "")

	ev := readEvent(t, conn)
	assert.Equal(t, EventAuthenticationError, ev.Type)
	assert.Equal(t, "authentication timeout", ev.Data)
	assert.Zero(t, registry.Len())
}

func TestServer_NewChannelReplacesOld(t *testing.T) {
	ts, registry, tokens := newTestServer(t)
	userID, token := issue(t, tokens)

	first := dial(t, ts, "?token="+token)
	assert.Equal(t, EventAuthenticationSuccess, readEvent(t, first).Type)
	waitFor(t, func() bool { _, ok := registry.Lookup(userID); return ok })
	old, _ := registry.Lookup(userID)

	second := dial(t, ts, "?token="+token)
	assert.Equal(t, EventAuthenticationSuccess, readEvent(t, second).Type)
	waitFor(t, func() bool { ch, _ := registry.Lookup(userID); return ch != old })

	_ = first.Close()
	time.Sleep(50 * time.Millisecond)
	current, ok := registry.Lookup(userID)
	require.True(t, ok, "closing the replaced channel keeps the newer registration")
	assert.NotEqual(t, old, current)
}
