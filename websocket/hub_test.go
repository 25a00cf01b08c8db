package websocket

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"scribe/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifierFunc func(ctx context.Context, token string) (*models.Session, error)

func (f verifierFunc) Verify(ctx context.Context, token string) (*models.Session, error) {
	return f(ctx, token)
}

var testVerifier = verifierFunc(func(_ context.Context, token string) (*models.Session, error) {
	if strings.HasPrefix(token, "valid-") {
		uid := strings.TrimPrefix(token, "valid-")
		return &models.Session{UID: uid, Email: uid + "@example.com"}, nil
	}
	return nil, errors.New("invalid token")
})

func startHub(t *testing.T) (*Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(Handler(hub, testVerifier))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

type wireEvent struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ev := readEvent(t, conn)
	require.Equal(t, EventConnected, ev.Type)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev wireEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHubBroadcastsToEveryone(t *testing.T) {
	hub, url := startHub(t)
	anon := dial(t, url)
	user := dial(t, url+"?token=valid-u1")
	assert.Equal(t, 2, hub.ConnectedClients())

	hub.Publish(Event{Type: EventPostCreated, Payload: map[string]string{"id": "p1"}})

	for _, conn := range []*websocket.Conn{anon, user} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventPostCreated, ev.Type)
		assert.Equal(t, "p1", ev.Payload["id"])
	}
}

func TestHubTargetedEvents(t *testing.T) {
	hub, url := startHub(t)
	anon := dial(t, url)
	u1 := dial(t, url+"?token=valid-u1")
	u2 := dial(t, url+"?token=valid-u2")

	hub.Publish(Event{Type: EventAuthState, UserID: "u1", Payload: map[string]string{"uid": "u1"}})
	hub.Publish(Event{Type: EventPostDeleted, Payload: map[string]string{"id": "p1"}})

	ev := readEvent(t, u1)
	assert.Equal(t, EventAuthState, ev.Type)
	assert.Equal(t, "u1", ev.Payload["uid"])
	assert.Equal(t, EventPostDeleted, readEvent(t, u1).Type)

	// Others skip straight to the broadcast.
	assert.Equal(t, EventPostDeleted, readEvent(t, u2).Type)
	assert.Equal(t, EventPostDeleted, readEvent(t, anon).Type)
}

func TestHubRejectsInvalidToken(t *testing.T) {
	_, url := startHub(t)

	_, resp, err := websocket.DefaultDialer.Dial(url+"?token=forged", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHubAnswersPing(t *testing.T) {
	_, url := startHub(t)
	conn := dial(t, url)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, EventPong, readEvent(t, conn).Type)
}

func TestHubUnregistersOnClose(t *testing.T) {
	hub, url := startHub(t)
	conn := dial(t, url)
	require.Equal(t, 1, hub.ConnectedClients())

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubCheckOrigin(t *testing.T) {
	hub := NewHub("http://allowed.test")
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	req.Header.Set("Origin", "http://allowed.test")
	assert.True(t, hub.upgrader.CheckOrigin(req))
	req.Header.Set("Origin", "http://evil.test")
	assert.False(t, hub.upgrader.CheckOrigin(req))
}
