package live

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	measurement "speedwatch/internal/measurement/domain"
)

// Event is one live notification pushed to connected clients.
type Event struct {
	Type      string    `json:"type"`
	OfficeID  string    `json:"office_id"`
	ISP       string    `json:"isp"`
	Timestamp time.Time `json:"timestamp"`
	Download  float64   `json:"download_mbps"`
	Upload    float64   `json:"upload_mbps"`
	PingMs    float64   `json:"ping_ms"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Broadcaster fans measurement events out to WebSocket subscribers.
// Each connection gets its own write mutex; a failed write evicts the
// connection.
type Broadcaster struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// NewBroadcaster constructs a Broadcaster.
func NewBroadcaster(logger *log.Logger) *Broadcaster {
	return &Broadcaster{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]*client),
	}
}

// ServeHTTP upgrades the request and keeps the connection registered
// until the peer goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logf("websocket upgrade: %v", err)
		return
	}
	b.add(conn)

	// Drain the read side so close frames and pings are processed.
	go func() {
		defer func() {
			b.remove(conn)
			_ = conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// OnRecorded adapts the broadcaster to the measurement service's
// completion hook.
func (b *Broadcaster) OnRecorded(record *measurement.Record) {
	if record == nil {
		return
	}
	b.Broadcast(Event{
		Type:      "measurement.recorded",
		OfficeID:  record.OfficeID,
		ISP:       record.ISP,
		Timestamp: record.Timestamp,
		Download:  record.DownloadMbps,
		Upload:    record.UploadMbps,
		PingMs:    record.PingMs,
	})
}

// Broadcast sends an event to every connected client.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	subscribers := make([]*client, 0, len(b.clients))
	for _, c := range b.clients {
		subscribers = append(subscribers, c)
	}
	b.mu.RUnlock()

	for _, c := range subscribers {
		c.mu.Lock()
		err := c.conn.WriteJSON(event)
		c.mu.Unlock()
		if err != nil {
			b.remove(c.conn)
			_ = c.conn.Close()
		}
	}
}

// Count reports the number of connected clients.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *Broadcaster) add(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[conn] = &client{conn: conn}
}

func (b *Broadcaster) remove(conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.clients, conn)
}

func (b *Broadcaster) logf(format string, args ...any) {
	if b.logger != nil {
		b.logger.Printf(format, args...)
	}
}
