package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newLocalHub(userIDs ...uuid.UUID) (*Hub, map[uuid.UUID]*Connection) {
	h := NewHub(nil)
	conns := map[uuid.UUID]*Connection{}
	for _, userID := range userIDs {
		conn := &Connection{UserID: userID, Send: make(chan []byte, 4)}
		conns[userID] = conn
		h.connections[userID] = map[*Connection]bool{conn: true}
	}
	return h, conns
}

func waitPayload(t *testing.T, ch <-chan []byte) map[string]any {
	t.Helper()
	select {
	case msg := <-ch:
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal ws payload: %v", err)
		}
		return payload
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting websocket payload")
	}
	return nil
}

func TestSendToUserJSONDeliversLocally(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	hub, conns := newLocalHub(alice, bob)

	if err := hub.SendToUserJSON(alice, map[string]string{"type": "notification:new"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	payload := waitPayload(t, conns[alice].Send)
	if payload["type"] != "notification:new" {
		t.Errorf("expected notification:new, got %v", payload["type"])
	}

	select {
	case msg := <-conns[bob].Send:
		t.Errorf("unexpected delivery to other user: %s", msg)
	default:
	}
}

func TestSendToUserJSONFansOutToAllConnections(t *testing.T) {
	alice := uuid.New()
	hub, _ := newLocalHub()

	first := &Connection{UserID: alice, Send: make(chan []byte, 4)}
	second := &Connection{UserID: alice, Send: make(chan []byte, 4)}
	hub.connections[alice] = map[*Connection]bool{first: true, second: true}

	if err := hub.SendToUserJSON(alice, map[string]string{"type": "notification:new"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitPayload(t, first.Send)
	waitPayload(t, second.Send)
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	alice := uuid.New()
	hub, _ := newLocalHub()

	conn := &Connection{UserID: alice, Send: make(chan []byte, 1)}
	hub.connections[alice] = map[*Connection]bool{conn: true}

	if err := hub.SendToUserJSON(alice, map[string]string{"seq": "1"}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	// Buffer holds one message, the second must be dropped without blocking.
	done := make(chan struct{})
	go func() {
		_ = hub.SendToUserJSON(alice, map[string]string{"seq": "2"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("send blocked on a full buffer")
	}

	payload := waitPayload(t, conn.Send)
	if payload["seq"] != "1" {
		t.Errorf("expected the first message to survive, got %v", payload["seq"])
	}
	select {
	case msg := <-conn.Send:
		t.Errorf("expected the second message dropped, got %s", msg)
	default:
	}
}

func TestHandleUserEventPayloadSkipsOwnInstance(t *testing.T) {
	alice := uuid.New()
	hub := NewHubWithInstanceID(nil, "instance-a")
	conn := &Connection{UserID: alice, Send: make(chan []byte, 4)}
	hub.connections[alice] = map[*Connection]bool{conn: true}

	inner, _ := json.Marshal(map[string]string{"type": "notification:new"})

	own, _ := json.Marshal(userEventMessage{
		EventType:        "notification",
		UserID:           alice.String(),
		Payload:          inner,
		SenderInstanceID: "instance-a",
	})
	hub.handleUserEventPayload(string(own))
	select {
	case msg := <-conn.Send:
		t.Fatalf("event from own instance must be skipped, got %s", msg)
	default:
	}

	remote, _ := json.Marshal(userEventMessage{
		EventType:        "notification",
		UserID:           alice.String(),
		Payload:          inner,
		SenderInstanceID: "instance-b",
	})
	hub.handleUserEventPayload(string(remote))
	payload := waitPayload(t, conn.Send)
	if payload["type"] != "notification:new" {
		t.Errorf("expected relayed payload, got %v", payload)
	}
}

func TestHandleUserEventPayloadIgnoresGarbage(t *testing.T) {
	alice := uuid.New()
	hub, conns := newLocalHub(alice)

	hub.handleUserEventPayload("{not json")
	hub.handleUserEventPayload(`{"event_type":"notification","user_id":"not-a-uuid","payload":{},"sender_instance_id":"x"}`)

	select {
	case msg := <-conns[alice].Send:
		t.Errorf("garbage payload delivered: %s", msg)
	default:
	}
}

func TestRegisterUnregisterLifecycle(t *testing.T) {
	alice := uuid.New()
	hub := NewHub(nil)
	go hub.Run()
	defer hub.Shutdown()

	conn := &Connection{UserID: alice, Send: make(chan []byte, 4)}
	hub.Register(conn)

	deadline := time.Now().Add(2 * time.Second)
	for hub.GetConnectionCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !hub.IsOnline(alice) {
		t.Error("expected user online after register")
	}

	hub.Unregister(conn)
	for hub.GetConnectionCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never unregistered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// Unregister closes the send channel.
	select {
	case _, ok := <-conn.Send:
		if ok {
			t.Error("expected closed send channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("send channel left open")
	}
}

type captureSender struct {
	userID  uuid.UUID
	payload any
}

func (c *captureSender) SendToUserJSON(userID uuid.UUID, payload any) error {
	c.userID = userID
	c.payload = payload
	return nil
}

func TestWSPublisherEnvelope(t *testing.T) {
	sender := &captureSender{}
	publisher := NewWSPublisher(sender)

	alice := uuid.New()
	resp := &NotificationResponse{ID: uuid.New(), Type: string(TypeExchangeRequested), Title: "New exchange request"}
	if err := publisher.NotifyNew(context.Background(), alice, resp, 3); err != nil {
		t.Fatalf("notify failed: %v", err)
	}

	if sender.userID != alice {
		t.Errorf("expected send to %s, got %s", alice, sender.userID)
	}

	raw, err := json.Marshal(sender.payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var envelope struct {
		Type string `json:"type"`
		Data struct {
			Notification *NotificationResponse `json:"notification"`
			UnreadCount  int                   `json:"unread_count"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if envelope.Type != "notification:new" {
		t.Errorf("expected notification:new envelope, got %q", envelope.Type)
	}
	if envelope.Data.UnreadCount != 3 {
		t.Errorf("expected unread_count 3, got %d", envelope.Data.UnreadCount)
	}
	if envelope.Data.Notification == nil || envelope.Data.Notification.Title != "New exchange request" {
		t.Errorf("expected notification in envelope, got %+v", envelope.Data.Notification)
	}
}
