package ws

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func dialStream(t *testing.T, b *Broadcaster) (*websocket.Conn, *httptest.Server) {
	t.Helper()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ws/alerts", NewHandler(b).Stream)
	srv := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/alerts"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("failed to dial stream: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}

	// The subscription is registered by the handler goroutine; wait for it
	// before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.SubscriberCount() == 0 {
		conn.Close()
		srv.Close()
		t.Fatal("stream never subscribed")
	}

	return conn, srv
}

func TestStream_DeliversBroadcasts(t *testing.T) {
	b := NewBroadcaster()
	conn, srv := dialStream(t, b)
	defer srv.Close()
	defer conn.Close()

	b.Broadcast(Event{
		Event: "new_alert",
		Data:  map[string]any{"message": "Flooding on Main St"},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if ev.Event != "new_alert" {
		t.Errorf("expected event new_alert, got %q", ev.Event)
	}
	data, ok := ev.Data.(map[string]any)
	if !ok || data["message"] != "Flooding on Main St" {
		t.Errorf("unexpected event data: %+v", ev.Data)
	}
}

func TestStream_EndsOnBroadcasterClose(t *testing.T) {
	b := NewBroadcaster()
	conn, srv := dialStream(t, b)
	defer srv.Close()
	defer conn.Close()

	b.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected stream to end after broadcaster close")
	}
}

func TestStream_UnsubscribesOnClientDisconnect(t *testing.T) {
	b := NewBroadcaster()
	conn, srv := dialStream(t, b)
	defer srv.Close()

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if b.SubscriberCount() != 0 {
		t.Errorf("expected subscriber removed after disconnect, got %d", b.SubscriberCount())
	}
}
