package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/pizzarate/internal/logger"
	"github.com/abrezinsky/pizzarate/internal/models"
	"github.com/abrezinsky/pizzarate/internal/services"
)

// startHub runs a hub behind a test server. The uid is taken from the ?uid= query.
func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := New(logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWs(w, r, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(func() {
		server.Close()
		cancel()
	})
	return hub, server
}

func dial(t *testing.T, hub *Hub, server *httptest.Server, uid string) *websocket.Conn {
	t.Helper()
	before := hub.ClientCount()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?uid=" + uid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() <= before {
		if time.Now().After(deadline) {
			t.Fatal("client was not registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) models.WSMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(time.Second))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	var msg models.WSMessage
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("expected no message, got %+v", msg)
	}
}

func TestNew_CreatesHub(t *testing.T) {
	hub := New(logger.Nop(), []string{"http://localhost:3000"})

	if hub.clients == nil || hub.broadcast == nil || hub.register == nil || hub.unregister == nil {
		t.Fatal("expected channels and client map to be initialized")
	}
	if hub.authorize == nil {
		t.Error("expected a default authorizer")
	}
}

func TestHub_PublishDoesNotBlockWithoutClients(t *testing.T) {
	hub, _ := startHub(t)

	done := make(chan bool)
	go func() {
		for i := 0; i < sendBuffer*2; i++ {
			hub.Publish(models.WSMessage{Type: "test", Payload: i})
		}
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Publish blocked with no clients")
	}
}

func TestHub_PublishAfterStopReturns(t *testing.T) {
	hub := New(logger.Nop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	hub.Start(ctx)
	cancel()
	<-hub.done

	done := make(chan bool)
	go func() {
		for i := 0; i < sendBuffer+1; i++ {
			hub.Publish(models.WSMessage{Type: "late"})
		}
		done <- true
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Publish blocked after the hub stopped")
	}
}

func TestHub_DeliversOwnUserTopic(t *testing.T) {
	hub, server := startHub(t)
	mine := dial(t, hub, server, "u1")
	theirs := dial(t, hub, server, "u2")

	hub.Publish(models.WSMessage{Type: services.MsgProfileUpdated, Topic: services.UserTopic("u1"), Payload: "hello"})

	msg := readMessage(t, mine)
	if msg.Type != services.MsgProfileUpdated || msg.Payload != "hello" {
		t.Errorf("unexpected message %+v", msg)
	}
	expectSilence(t, theirs)
}

func TestHub_BroadcastWithoutTopicReachesEveryone(t *testing.T) {
	hub, server := startHub(t)
	a := dial(t, hub, server, "u1")
	b := dial(t, hub, server, "u2")

	hub.Publish(models.WSMessage{Type: "maintenance"})

	if msg := readMessage(t, a); msg.Type != "maintenance" {
		t.Errorf("unexpected message %+v", msg)
	}
	if msg := readMessage(t, b); msg.Type != "maintenance" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestHub_SubscribeRequiresAuthorization(t *testing.T) {
	hub, server := startHub(t)
	hub.SetAuthorizer(func(_ context.Context, uid, topic string) bool {
		return uid == "u1" && topic == services.EventTopic("e1")
	})

	member := dial(t, hub, server, "u1")
	outsider := dial(t, hub, server, "u2")

	if err := member.WriteJSON(models.WSMessage{Type: msgSubscribe, Topic: services.EventTopic("e1")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if msg := readMessage(t, member); msg.Type != msgSubscribed {
		t.Fatalf("expected subscribed ack, got %+v", msg)
	}

	if err := outsider.WriteJSON(models.WSMessage{Type: msgSubscribe, Topic: services.EventTopic("e1")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if msg := readMessage(t, outsider); msg.Type != msgError {
		t.Fatalf("expected error reply, got %+v", msg)
	}

	hub.Publish(models.WSMessage{Type: services.MsgRatingSubmitted, Topic: services.EventTopic("e1")})
	if msg := readMessage(t, member); msg.Type != services.MsgRatingSubmitted {
		t.Errorf("unexpected message %+v", msg)
	}
	expectSilence(t, outsider)

	if err := member.WriteJSON(models.WSMessage{Type: msgUnsubscribe, Topic: services.EventTopic("e1")}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	// allow the read loop to process the unsubscribe
	time.Sleep(50 * time.Millisecond)
	hub.Publish(models.WSMessage{Type: services.MsgRatingSubmitted, Topic: services.EventTopic("e1")})
	expectSilence(t, member)
}

func TestHub_RevokedTopicStopsDelivery(t *testing.T) {
	hub, server := startHub(t)
	hub.SetAuthorizer(func(context.Context, string, string) bool { return true })

	leaver := dial(t, hub, server, "u1")
	stayer := dial(t, hub, server, "u2")
	for _, conn := range []*websocket.Conn{leaver, stayer} {
		if err := conn.WriteJSON(models.WSMessage{Type: msgSubscribe, Topic: services.EventTopic("e1")}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if msg := readMessage(t, conn); msg.Type != msgSubscribed {
			t.Fatalf("expected subscribed ack, got %+v", msg)
		}
	}

	hub.Publish(models.WSMessage{Type: services.MsgTopicRevoked, Topic: services.UserTopic("u1"), Payload: services.EventTopic("e1")})
	hub.Publish(models.WSMessage{Type: services.MsgRatingSubmitted, Topic: services.EventTopic("e1")})

	if msg := readMessage(t, stayer); msg.Type != services.MsgRatingSubmitted {
		t.Errorf("unexpected message %+v", msg)
	}
	expectSilence(t, leaver)
}

func TestHub_ClientDisconnectUnregisters(t *testing.T) {
	hub, server := startHub(t)
	conn := dial(t, hub, server, "u1")

	conn.Close()

	deadline := time.Now().Add(time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		if got := check(r); got != tt.want {
			t.Errorf("origin %q: got %v, want %v", tt.origin, got, tt.want)
		}
	}

	if !originChecker(nil)(httptest.NewRequest(http.MethodGet, "/ws", nil)) {
		t.Error("empty allow-list should accept everything")
	}
}

func TestOwnTopicOnly(t *testing.T) {
	if !ownTopicOnly(context.Background(), "u1", services.UserTopic("u1")) {
		t.Error("expected own topic to be allowed")
	}
	if ownTopicOnly(context.Background(), "u1", services.UserTopic("u2")) {
		t.Error("expected other user's topic to be denied")
	}
}
