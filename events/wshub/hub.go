// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wshub implements a concrete events.Sink that fans mempool and
// chain notifications out to WebSocket subscribers as JSON — the
// "notification fan-out layer" spec.md §1 treats as an opaque external
// collaborator, made concrete for this repo.
package wshub

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/btcsuite/btclog"
	"github.com/gorilla/websocket"

	"github.com/chainrelay/mempool/events"
)

// log is the package-level logger, silent until UseLogger is called.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) { log = logger }

// wireEvent is the JSON shape pushed to subscribers.
type wireEvent struct {
	Kind string      `json:"kind"`
	Data interface{} `json:"data"`
}

// Hub broadcasts events to any number of connected WebSocket clients.
// Events for a slow client are dropped (the client stays connected)
// rather than allowed to backpressure the queue's delivery goroutine.
type Hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan wireEvent
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]chan wireEvent),
	}
}

// ServeHTTP upgrades the connection and registers it as a subscriber
// until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	out := make(chan wireEvent, 64)
	h.mu.Lock()
	h.clients[conn] = out
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for ev := range out {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
}

// Deliver implements events.Sink. Delivery to a client that isn't
// draining fast enough is dropped, never blocked on, since Hub sits
// downstream of events.Queue's single consumer goroutine.
func (h *Hub) Deliver(e events.Event) {
	msg := wireEvent{Kind: e.Kind.String(), Data: e.Data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.clients {
		select {
		case ch <- msg:
		default:
			log.Debugf("wshub: dropping %s event, subscriber is not draining", e.Kind)
		}
	}
}

// MarshalForTest exposes the JSON encoding used on the wire, for tests
// that want to assert on payload shape without standing up a real socket.
func MarshalForTest(e events.Event) ([]byte, error) {
	return json.Marshal(wireEvent{Kind: e.Kind.String(), Data: e.Data})
}
