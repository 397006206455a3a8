package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Event is the envelope published to a connection room. Data is
// event-specific (position update, active waypoint snapshot, ...).
// Origin identifies the publishing instance so the redis relay can drop
// copies of its own publishes.
type Event struct {
	Event        string      `json:"event"`
	ConnectionID string      `json:"connection_id"`
	Data         interface{} `json:"data"`
	SentAt       time.Time   `json:"sent_at"`
	Origin       string      `json:"origin,omitempty"`
}

// Hub fans events out to websocket clients grouped by connection room,
// and relays through redis pub/sub so every instance sees every event.
type Hub struct {
	redis      *redis.Client
	log        *logrus.Logger
	instanceID string
	clients    map[string]map[*Client]struct{}
	mu         sync.RWMutex
}

type Client struct {
	ConnectionID string
	Send         chan []byte
}

func NewHub(redisClient *redis.Client, log *logrus.Logger) *Hub {
	h := &Hub{
		redis:      redisClient,
		log:        log,
		instanceID: uuid.NewString(),
		clients:    map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register(connectionID string) *Client {
	client := &Client{
		ConnectionID: connectionID,
		Send:         make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[connectionID] == nil {
		h.clients[connectionID] = map[*Client]struct{}{}
	}
	h.clients[connectionID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if roomClients, ok := h.clients[client.ConnectionID]; ok {
		delete(roomClients, client)
		if len(roomClients) == 0 {
			delete(h.clients, client.ConnectionID)
		}
	}
	close(client.Send)
}

// Publish wraps data in an Event envelope and broadcasts it to the
// connection room. Slow local clients are skipped rather than blocked on.
func (h *Hub) Publish(connectionID, event string, data interface{}) error {
	payload, err := json.Marshal(Event{
		Event:        event,
		ConnectionID: connectionID,
		Data:         data,
		SentAt:       time.Now(),
		Origin:       h.instanceID,
	})
	if err != nil {
		return err
	}
	return h.broadcast(connectionID, payload)
}

func (h *Hub) broadcast(connectionID string, payload []byte) error {
	h.mu.RLock()
	clients := h.clients[connectionID]
	h.mu.RUnlock()

	for client := range clients {
		select {
		case client.Send <- payload:
		default:
		}
	}

	if h.redis != nil {
		if err := h.redis.Publish(context.Background(), redisChannel(connectionID), payload).Err(); err != nil {
			if h.log != nil {
				h.log.WithError(err).WithField("connection_id", connectionID).Warn("redis publish failed")
			}
			return err
		}
	}
	return nil
}

func (h *Hub) subscribeRedis() {
	ctx := context.Background()
	pubsub := h.redis.PSubscribe(ctx, "connection:*:events")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		// locals already got this copy at publish time
		var env struct {
			Origin string `json:"origin"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &env); err == nil && env.Origin == h.instanceID {
			continue
		}

		connectionID := connectionIDFromChannel(msg.Channel)
		h.mu.RLock()
		clients := h.clients[connectionID]
		h.mu.RUnlock()
		for client := range clients {
			select {
			case client.Send <- []byte(msg.Payload):
			default:
			}
		}
	}
}

func redisChannel(connectionID string) string {
	return "connection:" + connectionID + ":events"
}

func connectionIDFromChannel(ch string) string {
	// connection:{id}:events
	const prefix = "connection:"
	const suffix = ":events"
	if len(ch) <= len(prefix)+len(suffix) {
		return ""
	}
	return ch[len(prefix) : len(ch)-len(suffix)]
}
