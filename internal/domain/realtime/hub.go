package realtime

import (
	"context"
	"encoding/json"
	"expvar"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/unimart/unimart-api/internal/pkg/events"
)

// userEventsChannel fans user-addressed messages out to every API instance.
const userEventsChannel = "ws:user_events"

var (
	wsConnectionsGauge   = expvar.NewInt("websocket_connections")
	wsEventsSentTotal    = expvar.NewInt("websocket_events_sent_total")
	wsEventsDroppedTotal = expvar.NewInt("websocket_events_dropped_total")
)

// Message is what a client receives on the socket.
type Message struct {
	Type       string    `json:"type"`
	Data       any       `json:"data,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type userEventMessage struct {
	UserID           string          `json:"user_id"`
	Payload          json.RawMessage `json:"payload"`
	SenderInstanceID string          `json:"sender_instance_id"`
}

// Connection is one open socket of a user.
type Connection struct {
	UserID uuid.UUID
	Conn   *websocket.Conn
	Send   chan []byte
}

// Hub tracks local sockets and relays order and wallet events to the users
// they concern. With Redis attached, messages reach sockets held by other
// instances too.
type Hub struct {
	connections map[uuid.UUID]map[*Connection]bool
	mu          sync.RWMutex

	redis  *redis.Client
	pubsub *redis.PubSub

	ctx    context.Context
	cancel context.CancelFunc

	instanceID string
	now        func() time.Time
}

func NewHub(redisClient *redis.Client) *Hub {
	return NewHubWithInstanceID(redisClient, uuid.NewString())
}

func NewHubWithInstanceID(redisClient *redis.Client, instanceID string) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		connections: make(map[uuid.UUID]map[*Connection]bool),
		redis:       redisClient,
		ctx:         ctx,
		cancel:      cancel,
		instanceID:  instanceID,
		now:         time.Now,
	}
	if redisClient != nil {
		h.pubsub = redisClient.Subscribe(ctx, userEventsChannel)
	}
	return h
}

// Run relays messages published by other instances until Shutdown.
func (h *Hub) Run() {
	if h.pubsub == nil {
		<-h.ctx.Done()
		return
	}

	ch := h.pubsub.Channel()
	for {
		select {
		case <-h.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleUserEventPayload(msg.Payload)
		}
	}
}

func (h *Hub) handleUserEventPayload(payload string) {
	var event userEventMessage
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return
	}
	if event.SenderInstanceID == h.instanceID {
		return
	}
	userID, err := uuid.Parse(event.UserID)
	if err != nil {
		return
	}
	h.sendLocal(userID, event.Payload)
}

func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	if h.connections[conn.UserID] == nil {
		h.connections[conn.UserID] = make(map[*Connection]bool)
	}
	h.connections[conn.UserID][conn] = true
	h.mu.Unlock()

	wsConnectionsGauge.Add(1)
	log.Debug().Str("user_id", conn.UserID.String()).Msg("User connected to WebSocket")
}

func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	if conns, ok := h.connections[conn.UserID]; ok {
		if _, exists := conns[conn]; exists {
			delete(conns, conn)
			close(conn.Send)
			wsConnectionsGauge.Add(-1)
		}
		if len(conns) == 0 {
			delete(h.connections, conn.UserID)
		}
	}
	h.mu.Unlock()

	log.Debug().Str("user_id", conn.UserID.String()).Msg("User disconnected from WebSocket")
}

// Publish implements events.Publisher: every recipient gets the event type
// and payload on all of their sockets.
func (h *Hub) Publish(ctx context.Context, e events.Event) {
	if len(e.Recipients) == 0 {
		return
	}
	data, err := json.Marshal(Message{Type: e.Type, Data: e.Payload, OccurredAt: h.now().UTC()})
	if err != nil {
		log.Error().Err(err).Str("event_type", e.Type).Msg("Failed to marshal WebSocket message")
		return
	}

	for _, userID := range e.Recipients {
		h.sendLocal(userID, data)
		if err := h.publishUserEvent(ctx, userID, data); err != nil {
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("Redis fan-out failed")
		}
	}
}

func (h *Hub) sendLocal(userID uuid.UUID, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.connections[userID] {
		select {
		case conn.Send <- data:
			wsEventsSentTotal.Add(1)
		default:
			wsEventsDroppedTotal.Add(1)
			log.Warn().Str("user_id", userID.String()).Msg("WebSocket send buffer full")
		}
	}
}

func (h *Hub) publishUserEvent(ctx context.Context, userID uuid.UUID, data []byte) error {
	if h.redis == nil {
		return nil
	}
	payload, err := json.Marshal(userEventMessage{
		UserID:           userID.String(),
		Payload:          data,
		SenderInstanceID: h.instanceID,
	})
	if err != nil {
		return err
	}
	return h.redis.Publish(context.WithoutCancel(ctx), userEventsChannel, payload).Err()
}

// ConnectionCount returns the number of local sockets.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.connections {
		total += len(conns)
	}
	return total
}

func (h *Hub) Shutdown() {
	h.cancel()
	if h.pubsub != nil {
		h.pubsub.Close()
	}
}
