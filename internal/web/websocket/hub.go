package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/inkwell-dev/inkwell/internal/logging"
	"github.com/inkwell-dev/inkwell/internal/metrics"
)

// staleAfter drops clients that have not answered a ping for this long
const staleAfter = 90 * time.Second

// Hub tracks connected clients and the rooms they belong to
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	unregister chan *Client

	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		unregister: make(chan *Client, 64),
		logger:     logging.OrNop(logger).Named("websocket"),
		now:        time.Now,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Run processes unregistrations and drops stale clients until Shutdown
func (h *Hub) Run() {
	h.wg.Add(1)
	defer h.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return
		case c := <-h.unregister:
			h.remove(c)
		case <-ticker.C:
			h.dropStale()
		}
	}
}

// add registers c. It returns false once the hub is shutting down. Adding
// happens on the caller's goroutine so a client is always present before
// its pumps can unregister it.
func (h *Hub) add(c *Client) bool {
	h.mu.Lock()
	if h.ctx.Err() != nil {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	room := UserRoom(c.UserID)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Inc()
	h.logger.Debug("client registered", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID), zap.Int("clients", n))
	return true
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for name, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	h.mu.Unlock()

	c.close()
	metrics.WebSocketConnections.Dec()
	h.logger.Debug("client unregistered", zap.String("client_id", c.ID), zap.Int64("user_id", c.UserID))
}

func (h *Hub) dropStale() {
	cutoff := h.now().Add(-staleAfter)

	h.mu.RLock()
	var stale []*Client
	for c := range h.clients {
		if c.LastHeartbeat().Before(cutoff) {
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.logger.Info("removing stale client", zap.String("client_id", c.ID))
		h.remove(c)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		metrics.WebSocketConnections.Dec()
	}
	h.logger.Info("hub stopped", zap.Int("disconnected", len(clients)))
}

// BroadcastToRoom queues msg for every client in room and returns how many
// clients accepted it. Clients with a full buffer are skipped.
func (h *Hub) BroadcastToRoom(room string, msg *Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range members {
		if c.enqueue(data) {
			sent++
		} else {
			h.logger.Warn("send buffer full, message dropped", zap.String("client_id", c.ID), zap.String("room", room))
		}
	}
	return sent
}

// Push sends a typed message to every connection of userID and reports
// whether at least one connection received it.
func (h *Hub) Push(userID int64, typ string, data any) bool {
	msg, err := NewMessage(typ, data)
	if err != nil {
		h.logger.Error("failed to build message", zap.Error(err))
		return false
	}
	return h.BroadcastToRoom(UserRoom(userID), msg) > 0
}

// IsOnline reports whether userID has an open connection
func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[UserRoom(userID)]) > 0
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects every client and stops Run
func (h *Hub) Shutdown(ctx context.Context) error {
	h.once.Do(h.cancel)

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
