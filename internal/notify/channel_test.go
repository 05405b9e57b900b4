package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardscope/internal/model"
)

const testAddress = "0x1111111111111111111111111111111111111111"

var upgrader = websocket.Upgrader{}

// wsServer upgrades each connection and hands it to serve.
func wsServer(t *testing.T, serve func(conn *websocket.Conn, r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn, r)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestChannelDispatchesEvents(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn, r *http.Request) {
		assert.Equal(t, testAddress, r.URL.Query().Get("address"))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"reward_earned","chain_id":8453}`))
		// Hold the connection open until the client disconnects.
		conn.ReadMessage()
	})
	defer server.Close()

	channel := NewChannel(Config{URL: wsURL(server)}, nil)
	defer channel.Disconnect()

	received := make(chan Event, 1)
	channel.Subscribe(EventRewardEarned, func(event Event) { received <- event })

	require.NoError(t, channel.Connect(context.Background(), testAddress))
	assert.True(t, channel.IsConnected())

	select {
	case event := <-received:
		assert.Equal(t, EventRewardEarned, event.Kind)
		assert.Equal(t, uint64(8453), event.ChainID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not dispatched")
	}
}

func TestChannelUnsubscribe(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn, _ *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"new_referral"}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"referral_update"}`))
		conn.ReadMessage()
	})
	defer server.Close()

	channel := NewChannel(Config{URL: wsURL(server)}, nil)
	defer channel.Disconnect()

	referrals := make(chan Event, 1)
	unsubscribe := channel.Subscribe(EventNewReferral, func(event Event) { referrals <- event })
	unsubscribe()

	updates := make(chan Event, 1)
	channel.Subscribe(EventReferralUpdate, func(event Event) { updates <- event })

	require.NoError(t, channel.Connect(context.Background(), testAddress))

	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("subscribed handler never fired")
	}

	select {
	case <-referrals:
		t.Fatal("unsubscribed handler must not fire")
	default:
	}
}

func TestChannelMalformedEventsSkipped(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn, _ *http.Request) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"reward_earned"}`))
		conn.ReadMessage()
	})
	defer server.Close()

	channel := NewChannel(Config{URL: wsURL(server)}, nil)
	defer channel.Disconnect()

	received := make(chan Event, 1)
	channel.Subscribe(EventRewardEarned, func(event Event) { received <- event })

	require.NoError(t, channel.Connect(context.Background(), testAddress))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("well-formed event after a malformed one was not dispatched")
	}
}

func TestChannelDegradedAfterExhaustedRetries(t *testing.T) {
	server := wsServer(t, func(_ *websocket.Conn, _ *http.Request) {
		// Drop the connection immediately to force a reconnect.
	})

	channel := NewChannel(Config{
		URL:        wsURL(server),
		RetryDelay: time.Millisecond,
		MaxRetries: 2,
	}, nil)

	require.NoError(t, channel.Connect(context.Background(), testAddress))

	// Kill the endpoint so every reconnect attempt fails.
	server.Close()

	select {
	case <-channel.Degraded():
	case <-time.After(5 * time.Second):
		t.Fatal("channel never reported degraded")
	}
	assert.False(t, channel.IsConnected())

	err := channel.Connect(context.Background(), testAddress)
	assert.ErrorIs(t, err, model.ErrChannelDegraded, "a degraded channel cannot be reconnected")
}

func TestChannelDisconnect(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn, _ *http.Request) {
		conn.ReadMessage()
	})
	defer server.Close()

	channel := NewChannel(Config{URL: wsURL(server)}, nil)
	require.NoError(t, channel.Connect(context.Background(), testAddress))

	channel.Disconnect()
	assert.False(t, channel.IsConnected())

	select {
	case <-channel.Degraded():
		t.Fatal("deliberate disconnect must not mark the channel degraded")
	default:
	}
}

func TestChannelDisconnectIsTerminal(t *testing.T) {
	server := wsServer(t, func(conn *websocket.Conn, _ *http.Request) {
		conn.ReadMessage()
	})
	defer server.Close()

	channel := NewChannel(Config{URL: wsURL(server)}, nil)
	require.NoError(t, channel.Connect(context.Background(), testAddress))

	channel.Disconnect()

	err := channel.Connect(context.Background(), testAddress)
	require.Error(t, err, "a disconnected channel cannot be dialed again")
}

func TestChannelDisconnectDuringReconnectWait(t *testing.T) {
	server := wsServer(t, func(_ *websocket.Conn, _ *http.Request) {
		// Drop the connection immediately to push the read loop into
		// its reconnect wait.
	})
	defer server.Close()

	channel := NewChannel(Config{
		URL:        wsURL(server),
		RetryDelay: time.Hour,
		MaxRetries: 5,
	}, nil)

	require.NoError(t, channel.Connect(context.Background(), testAddress))
	require.Eventually(t, func() bool { return !channel.IsConnected() }, 2*time.Second, 5*time.Millisecond)

	disconnected := make(chan struct{})
	go func() {
		channel.Disconnect()
		close(disconnected)
	}()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect must not wait out the reconnect delay")
	}
}

func TestChannelConnectRequiresURL(t *testing.T) {
	channel := NewChannel(Config{}, nil)
	require.Error(t, channel.Connect(context.Background(), testAddress))
}
