package websocket

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/doodlegames/doodle-rewards/internal/errors"
	"github.com/doodlegames/doodle-rewards/internal/types"
	"github.com/doodlegames/doodle-rewards/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendQueueSize  = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Note: Adjust this for production!
	},
}

// feedClient pairs a connection with its outbound queue. All frames for a
// connection, broadcasts and pings alike, go out through writePump so the
// connection never has two concurrent writers.
type feedClient struct {
	conn *websocket.Conn
	send chan []byte
}

// RewardFeedManager pushes reward events to connected game clients.
type RewardFeedManager struct {
	clients    map[*feedClient]bool
	broadcast  chan []byte
	register   chan *feedClient
	unregister chan *feedClient
}

func NewRewardFeedManager() *RewardFeedManager {
	return &RewardFeedManager{
		clients:    make(map[*feedClient]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *feedClient),
		unregister: make(chan *feedClient),
	}
}

func (manager *RewardFeedManager) Run() {
	for {
		select {
		case client := <-manager.register:
			manager.clients[client] = true
		case client := <-manager.unregister:
			if _, ok := manager.clients[client]; ok {
				delete(manager.clients, client)
				close(client.send)
			}
		case message := <-manager.broadcast:
			for client := range manager.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the feed.
					delete(manager.clients, client)
					close(client.send)
				}
			}
		}
	}
}

func (manager *RewardFeedManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Failed to upgrade connection: %v", err)
		http.Error(w, "Could not open websocket connection", http.StatusBadRequest)
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, sendQueueSize)}
	manager.register <- client

	go manager.readPump(client)
	go manager.writePump(client)
}

func (manager *RewardFeedManager) readPump(client *feedClient) {
	defer func() {
		manager.unregister <- client
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error { client.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	// The feed is one-way; inbound frames only keep the connection alive.
	for {
		_, _, err := client.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Error("Unexpected close error: %v", err)
			}
			break
		}
	}
}

// writePump is the sole writer for its connection.
func (manager *RewardFeedManager) writePump(client *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		client.conn.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				client.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := client.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Error("Error broadcasting message: %v", err)
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// BroadcastRewardEvent sends a reward event to every connected client.
func (manager *RewardFeedManager) BroadcastRewardEvent(event types.RewardEvent) error {
	data, err := json.Marshal(map[string]interface{}{
		"type":  "reward_issued",
		"event": event,
	})
	if err != nil {
		return &errors.WebSocketError{Operation: "marshal reward event", Err: err}
	}

	manager.broadcast <- data
	return nil
}
