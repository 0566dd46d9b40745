// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package events implements the single-consumer notification queue and
// event schema described in spec.md §5/§6. Mutating mempool operations
// enqueue events while holding pool_lock and never invoke a sink
// directly: sinks run on the queue's worker goroutine, never under
// pool_lock. A subscriber slower than the queue's buffer does make
// Enqueue wait once that buffer is full.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btclog"
)

// log is the package-level logger, silent until UseLogger is called.
var log = btclog.Disabled

// UseLogger sets the package-wide logger.
func UseLogger(logger btclog.Logger) { log = logger }

// Kind enumerates the externally observable event types from spec.md §6.
type Kind int

const (
	KindTransactionAdded Kind = iota
	KindTransactionRemoved
	KindMempoolUpdatedForBlockConnect
	KindBlockConnected
	KindBlockDisconnected
	KindUpdatedTip
	KindNewPoWValidBlock
	KindBlockChecked
)

func (k Kind) String() string {
	switch k {
	case KindTransactionAdded:
		return "transaction_added"
	case KindTransactionRemoved:
		return "transaction_removed"
	case KindMempoolUpdatedForBlockConnect:
		return "mempool_updated_for_block_connect"
	case KindBlockConnected:
		return "block_connected"
	case KindBlockDisconnected:
		return "block_disconnected"
	case KindUpdatedTip:
		return "updated_tip"
	case KindNewPoWValidBlock:
		return "new_pow_valid_block"
	case KindBlockChecked:
		return "block_checked"
	default:
		return "unknown"
	}
}

// RemovalReason enumerates why a transaction left the mempool.
type RemovalReason int

const (
	ReasonExpiry RemovalReason = iota
	ReasonSizeLimit
	ReasonReorg
	ReasonConflict
	ReasonBlock
	ReasonReplaced
)

func (r RemovalReason) String() string {
	switch r {
	case ReasonExpiry:
		return "expiry"
	case ReasonSizeLimit:
		return "size_limit"
	case ReasonReorg:
		return "reorg"
	case ReasonConflict:
		return "conflict"
	case ReasonBlock:
		return "block"
	case ReasonReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// TransactionAdded carries the payload for KindTransactionAdded.
type TransactionAdded struct {
	TxId              chainhash.Hash
	Fee               int64
	VSize             int64
	ValidForEstimation bool
}

// TransactionRemoved carries the payload for KindTransactionRemoved.
type TransactionRemoved struct {
	TxId   chainhash.Hash
	Reason RemovalReason
}

// MempoolUpdatedForBlockConnect carries the payload for
// KindMempoolUpdatedForBlockConnect.
type MempoolUpdatedForBlockConnect struct {
	RemovedInBlock    []chainhash.Hash
	RemovedConflicted []chainhash.Hash
}

// Event is a single notification, tagged by Kind with a typed payload.
type Event struct {
	Kind Kind
	Data interface{}
}

// Sink is anything that can accept an ordered stream of events — the
// "opaque sink that accepts ordered events" of spec.md §1.
type Sink interface {
	Deliver(Event)
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(Event)

// Deliver implements Sink.
func (f SinkFunc) Deliver(e Event) { f(e) }

// Queue is a single-consumer FIFO notification queue. Producers call
// Enqueue while holding pool_lock/chain_lock; delivery to the registered
// sinks always happens later, off a background goroutine, so sinks never
// observe the locks held.
type Queue struct {
	mu      sync.RWMutex
	sinks   []Sink
	ch      chan Event
	wg      sync.WaitGroup
	closing atomic.Bool

	// inFlight counts events handed to the worker but not yet delivered;
	// SyncQueue blocks until it reaches zero.
	inFlight sync.WaitGroup
}

// NewQueue creates a Queue with the given channel capacity and starts its
// background drain worker.
func NewQueue(capacity int) *Queue {
	q := &Queue{
		ch: make(chan Event, capacity),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Subscribe registers a sink that will observe every future event, in
// enqueue order, relative to other sinks' views of the same event but not
// necessarily in lockstep across sinks.
func (q *Queue) Subscribe(s Sink) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sinks = append(q.sinks, s)
}

// Enqueue appends an event to the queue. It must never be called from
// inside a sink's Deliver. The caller may hold any lock: Enqueue only
// hands the event to the worker over the buffered channel, and blocks
// only while that buffer is full.
func (q *Queue) Enqueue(e Event) {
	if q.closing.Load() {
		return
	}
	q.inFlight.Add(1)
	q.ch <- e
}

func (q *Queue) run() {
	defer q.wg.Done()
	for e := range q.ch {
		q.mu.RLock()
		sinks := q.sinks
		q.mu.RUnlock()
		for _, s := range sinks {
			s.Deliver(e)
		}
		q.inFlight.Done()
	}
}

// SyncQueue blocks until every event enqueued before this call has been
// delivered to all sinks. Callers must not hold pool_lock or chain_lock
// when calling this, since a subscriber's Deliver may itself want either
// lock to read current state.
func (q *Queue) SyncQueue() {
	q.inFlight.Wait()
}

// Close stops accepting new events and waits for the worker to drain.
func (q *Queue) Close() {
	if !q.closing.CompareAndSwap(false, true) {
		return
	}
	close(q.ch)
	q.wg.Wait()
	log.Debugf("events: queue closed, %d sink(s) drained", len(q.sinks))
}
