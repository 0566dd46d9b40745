// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wshub

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/events"
)

func TestHubBroadcastsDeliveredEventsToSubscribers(t *testing.T) {
	hub := New()
	server := httptest.NewServer(hub)
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give ServeHTTP a moment to register the client before delivering.
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	hub.Deliver(events.Event{Kind: events.KindTransactionAdded, Data: map[string]any{"txid": "abc"}})

	var got wireEvent
	conn.SetReadDeadline(time.Now().Add(time.Second))
	require.NoError(t, conn.ReadJSON(&got))
	require.Equal(t, "transaction_added", got.Kind)
}

func TestHubDropsEventsForNonDrainingSubscriber(t *testing.T) {
	hub := New()
	ch := make(chan wireEvent) // unbuffered and never read: always full
	hub.mu.Lock()
	hub.clients[nil] = ch
	hub.mu.Unlock()

	// Deliver must not block even though the client channel can never
	// accept a send.
	done := make(chan struct{})
	go func() {
		hub.Deliver(events.Event{Kind: events.KindBlockConnected, Data: nil})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked on a non-draining subscriber")
	}
}

func TestMarshalForTestMatchesWireShape(t *testing.T) {
	raw, err := MarshalForTest(events.Event{Kind: events.KindUpdatedTip, Data: 42})
	require.NoError(t, err)
	require.JSONEq(t, `{"kind":"updated_tip","data":42}`, string(raw))
}
