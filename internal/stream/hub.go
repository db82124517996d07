package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"market-pulse/internal/domain"
	"market-pulse/internal/metrics"
)

const (
	EventOverview = "overview"
	EventTickers  = "tickers"

	sendBuffer   = 16
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans overview passes and ticker boards out to websocket clients. New
// clients receive the most recent message of each type on connect.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	last    map[string][]byte
	now     func() time.Time
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		last:    make(map[string][]byte),
		now:     time.Now,
	}
}

func (h *Hub) ObservePass(_ context.Context, assets []domain.AnalyzedAsset) {
	h.broadcast(EventOverview, assets)
}

func (h *Hub) PublishTickers(tickers []domain.Ticker) {
	h.broadcast(EventTickers, tickers)
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(kind string, data any) {
	payload, err := json.Marshal(Event{Type: kind, Timestamp: h.now().UTC(), Data: data})
	if err != nil {
		log.Error().Err(err).Str("type", kind).Msg("marshal stream event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[kind] = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop it rather than block the pipeline.
			h.removeLocked(c)
		}
	}
}

// ServeWS upgrades the request and streams events until the peer leaves.
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	for _, kind := range []string{EventOverview, EventTickers} {
		if msg, ok := h.last[kind]; ok {
			cl.send <- msg
		}
	}
	h.mu.Unlock()
	metrics.WSClients.Inc()

	go h.writePump(cl)
	h.readPump(cl)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.WSClients.Dec()
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
	}
}
