package stream

/*
Пакет stream — WebSocket-трансляция снимков юнитов в дашборды.

Hub получает снимки от юнитов (Observe) и раздаёт их всем подключённым клиентам.
Новый клиент сразу получает текущее состояние всех юнитов, дальше — только изменения.
Состояние снимается в цикле Run в момент регистрации, поэтому между ним и потоком
изменений нет окна; снимки с Version не новее уже отправленного клиенту пропускаются.
Медленный клиент с переполненным буфером отключается, на остальных это не влияет.
*/

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/xela07ax/clickpulse/internal/domain"
)

const (
	MessageTypeSnapshot = "snapshot"
	MessageTypePing     = "ping"
	MessageTypePong     = "pong"
)

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex

	initial  func() []domain.Snapshot
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub initial отдаёт текущее состояние для только что подключившихся клиентов.
func NewHub(initial func() []domain.Snapshot, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		initial:    initial,
		upgrader: websocket.Upgrader{
			ReadBufferSize:   1024,
			WriteBufferSize:  4096,
			HandshakeTimeout: 10 * time.Second,
		},
		logger: logger.With(zap.String("mod", "stream")),
	}
}

// Run обслуживает регистрацию клиентов и рассылку до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			n := h.closeAll()
			h.logger.Info("websocket hub stopped", zap.Int("clients_closed", n))
			return

		case c := <-h.register:
			h.sendInitial(c)
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.String("client", c.id), zap.Int("total_clients", total))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", zap.String("client", c.id), zap.Int("total_clients", total))

		case msg := <-h.broadcast:
			h.broadcastToClients(msg)
		}
	}
}

// Observe подходит как realtime.Observer. Не блокирует юнит.
func (h *Hub) Observe(s domain.Snapshot) {
	select {
	case h.broadcast <- Message{Type: MessageTypeSnapshot, Data: s}:
	default:
		h.logger.Warn("snapshot dropped: broadcast buffer is full", zap.String("domain", string(s.Kind)))
	}
}

// ServeWS HTTP-ручка апгрейда до WebSocket.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn)
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}
	c.start()
}

// sendInitial вызывается только из Run, до добавления клиента в рассылку.
func (h *Hub) sendInitial(c *Client) {
	if h.initial == nil {
		return
	}
	for _, s := range h.initial() {
		select {
		case c.send <- Message{Type: MessageTypeSnapshot, Data: s}:
			c.seen[s.Kind] = s.Version
		default:
			h.logger.Warn("initial snapshot dropped", zap.String("client", c.id), zap.String("domain", string(s.Kind)))
		}
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcastToClients(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s, isSnapshot := msg.Data.(domain.Snapshot)
	for c := range h.clients {
		if isSnapshot {
			// клиент уже видел это состояние или более новое
			if v, ok := c.seen[s.Kind]; ok && s.Version <= v {
				continue
			}
		}
		select {
		case c.send <- msg:
			if isSnapshot {
				c.seen[s.Kind] = s.Version
			}
		default:
			// Буфер клиента переполнен — отключаем
			close(c.send)
			delete(h.clients, c)
			h.logger.Warn("slow websocket client dropped", zap.String("client", c.id))
		}
	}
}

func (h *Hub) closeAll() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	return n
}

// leave снимает клиента с учёта; после остановки Run — просто выходим.
func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
