package api

import (
	"encoding/json"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(nil, log.Default())
	hub.now = func() time.Time { return apiTestNow }

	ts := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})

	return hub, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dialHub(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s error: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.ClientCount(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHub_BroadcastsAlert(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dialHub(t, url)
	waitForClients(t, hub, 1)

	hub.PublishAlert("2099942", "99942 Apophis", 56, "high")

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage error: %v", err)
	}

	var alert Alert
	if err := json.Unmarshal(msg, &alert); err != nil {
		t.Fatalf("decode alert %s: %v", msg, err)
	}
	if alert.Type != "hazard_alert" {
		t.Errorf("type = %q, want hazard_alert", alert.Type)
	}
	if alert.NeoID != "2099942" || alert.Name != "99942 Apophis" {
		t.Errorf("object = %s/%s, want 2099942/99942 Apophis", alert.NeoID, alert.Name)
	}
	if alert.RiskScore != 56 || alert.RiskLevel != "high" {
		t.Errorf("risk = %v/%q, want 56/high", alert.RiskScore, alert.RiskLevel)
	}
	if !alert.PublishedAt.Equal(apiTestNow) {
		t.Errorf("published_at = %v, want %v", alert.PublishedAt, apiTestNow)
	}
}

func TestHub_MultipleClients(t *testing.T) {
	hub, url := newTestHub(t)
	first := dialHub(t, url)
	second := dialHub(t, url)
	waitForClients(t, hub, 2)

	hub.PublishAlert("3542519", "2010 PK9", 38, "medium")

	for i, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("client %d ReadMessage error: %v", i, err)
		}
		var alert Alert
		if err := json.Unmarshal(msg, &alert); err != nil {
			t.Fatalf("client %d decode alert: %v", i, err)
		}
		if alert.NeoID != "3542519" {
			t.Errorf("client %d neo_id = %q, want 3542519", i, alert.NeoID)
		}
	}
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub, url := newTestHub(t)
	conn := dialHub(t, url)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)

	// Publishing with no clients must not panic or block.
	hub.PublishAlert("2099942", "99942 Apophis", 56, "high")
}
