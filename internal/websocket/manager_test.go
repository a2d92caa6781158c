package websocket

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlegames/doodle-rewards/internal/types"
)

func dialTestClient(t *testing.T, manager *RewardFeedManager) *websocket.Conn {
	server := httptest.NewServer(http.HandlerFunc(manager.HandleWebSocket))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestBroadcastRewardEvent(t *testing.T) {
	manager := NewRewardFeedManager()
	go manager.Run()

	conn := dialTestClient(t, manager)

	// Allow the register message to be processed
	time.Sleep(100 * time.Millisecond)

	event := types.RewardEvent{
		Wallet: "0x1234567890123456789012345678901234567890",
		Amount: "1",
		TxHash: "0xaaa",
	}
	require.NoError(t, manager.BroadcastRewardEvent(event))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var received struct {
		Type  string            `json:"type"`
		Event types.RewardEvent `json:"event"`
	}
	require.NoError(t, json.Unmarshal(message, &received))
	assert.Equal(t, "reward_issued", received.Type)
	assert.Equal(t, event, received.Event)
}

func TestBroadcastReachesAllClients(t *testing.T) {
	manager := NewRewardFeedManager()
	go manager.Run()

	first := dialTestClient(t, manager)
	second := dialTestClient(t, manager)

	time.Sleep(100 * time.Millisecond)

	event := types.RewardEvent{Wallet: "0xabc", Amount: "0.1", TxHash: "0xbbb", Bonus: true}
	require.NoError(t, manager.BroadcastRewardEvent(event))

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(message), "reward_issued")
		assert.Contains(t, string(message), "0xbbb")
	}
}

func TestConcurrentBroadcasts(t *testing.T) {
	manager := NewRewardFeedManager()
	go manager.Run()

	conn := dialTestClient(t, manager)

	time.Sleep(100 * time.Millisecond)

	// Frames for a connection all funnel through its write pump, so
	// simultaneous broadcasters never interleave writes on the wire.
	const events = 10
	var wg sync.WaitGroup
	for i := 0; i < events; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event := types.RewardEvent{
				Wallet: "0x1234567890123456789012345678901234567890",
				Amount: "1",
				TxHash: fmt.Sprintf("0x%03d", i),
			}
			assert.NoError(t, manager.BroadcastRewardEvent(event))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := 0; i < events; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, message, err := conn.ReadMessage()
		require.NoError(t, err)

		var received struct {
			Event types.RewardEvent `json:"event"`
		}
		require.NoError(t, json.Unmarshal(message, &received))
		seen[received.Event.TxHash] = true
	}
	assert.Len(t, seen, events)
}
