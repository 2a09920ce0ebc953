package live

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	measurement "speedwatch/internal/measurement/domain"
)

func dialTestServer(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(b)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestBroadcastReachesSubscriber(t *testing.T) {
	b := NewBroadcaster(nil)
	conn := dialTestServer(t, b)

	deadline := time.Now().Add(2 * time.Second)
	for b.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", b.Count())
	}

	b.OnRecorded(&measurement.Record{
		OfficeID:     "off-1",
		ISP:          "Acme",
		Timestamp:    time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
		DownloadMbps: 88.1,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.Type != "measurement.recorded" || event.OfficeID != "off-1" || event.ISP != "Acme" {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestDeadConnectionIsEvicted(t *testing.T) {
	b := NewBroadcaster(nil)
	conn := dialTestServer(t, b)

	deadline := time.Now().Add(2 * time.Second)
	for b.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	_ = conn.Close()

	// Writes to the closed peer fail and evict it.
	deadline = time.Now().Add(2 * time.Second)
	for b.Count() > 0 && time.Now().Before(deadline) {
		b.Broadcast(Event{Type: "ping"})
		time.Sleep(10 * time.Millisecond)
	}
	if b.Count() != 0 {
		t.Fatalf("expected eviction, still %d subscribers", b.Count())
	}
}
