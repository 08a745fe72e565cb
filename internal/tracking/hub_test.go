package tracking

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversToRouteSubscribers(t *testing.T) {
	hub := NewHub()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		routeID := uint(1)
		if r.URL.Query().Get("route") == "2" {
			routeID = 2
		}
		hub.Serve(routeID, conn, &Snapshot{RouteID: routeID, Latitude: 10})
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn1, _, err := websocket.DefaultDialer.Dial(wsURL+"?route=1", nil)
	require.NoError(t, err)
	defer conn1.Close()
	conn2, _, err := websocket.DefaultDialer.Dial(wsURL+"?route=2", nil)
	require.NoError(t, err)
	defer conn2.Close()

	var got Snapshot
	require.NoError(t, conn1.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn1.ReadJSON(&got))
	assert.Equal(t, 10.0, got.Latitude, "initial snapshot is sent on connect")
	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn2.ReadJSON(&got))

	require.Eventually(t, func() bool {
		return hub.Subscribers(1) == 1 && hub.Subscribers(2) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(Snapshot{RouteID: 1, Latitude: 17.4, Longitude: 78.4})

	require.NoError(t, conn1.ReadJSON(&got))
	assert.Equal(t, uint(1), got.RouteID)
	assert.Equal(t, 17.4, got.Latitude)

	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn2.ReadMessage()
	assert.Error(t, err, "route 2 subscriber must not see route 1 updates")

	require.NoError(t, conn1.Close())
	require.Eventually(t, func() bool { return hub.Subscribers(1) == 0 }, 2*time.Second, 10*time.Millisecond)
}
