package live

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeWs_EndToEndDelivery(t *testing.T) {
	reg := newTestRegistry(Options{Heartbeat: time.Hour})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWs(reg, w, r, 9)
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var connect Event
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&connect))
	assert.Equal(t, EventConnect, connect.Name)

	// Client chatter is ignored.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))

	require.True(t, reg.Deliver(9, Event{ID: "55", Name: EventNotification, Data: json.RawMessage(`{"id":55}`)}))

	var got Event
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "55", got.ID)
	assert.Equal(t, EventNotification, got.Name)
	assert.JSONEq(t, `{"id":55}`, string(got.Data))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return reg.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_UpgradeFailure(t *testing.T) {
	reg := newTestRegistry(Options{})
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()

	ServeWs(reg, w, req, 9)

	// Upgrade fails for a plain HTTP request and the upgrader answers 400.
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, reg.Len())
}
