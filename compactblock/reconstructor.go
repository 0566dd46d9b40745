// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package compactblock

import (
	"math"

	"github.com/chainrelay/mempool/anticache"
	"github.com/chainrelay/mempool/wire"
)

// Status is the three-way outcome init_from_compact and fill_block share
// (spec.md §4.F): Ok proceeds, Invalid is a protocol violation (drop the
// peer), Failed means fall back to a full-block request — the message
// itself may be honest but the short-id space collided.
type Status int

const (
	StatusOk Status = iota
	StatusInvalid
	StatusFailed
)

const (
	// maxBlockSize bounds the compact block the same way a full block
	// would be bounded.
	maxBlockSize = 4_000_000

	// minTxWireSize is the smallest a canonically-encoded transaction
	// can be, used to bound the maximum plausible short-id+prefilled
	// count (spec.md §4.F step 1).
	minTxWireSize = 60

	// shortIDBucketMax is the anti-DoS threshold: a short-id value
	// repeated more than this many times signals an engineered bad hash
	// distribution (spec.md §4.F step 4).
	shortIDBucketMax = 12
)

// PrefilledTx is one entry of a compact block's differentially-encoded
// prefilled transaction list.
type PrefilledTx struct {
	Skip uint16
	Tx   *wire.MsgTx
}

// CompactBlock is the wire-level message described in spec.md §6.
type CompactBlock struct {
	Header    wire.BlockHeader
	Nonce     uint64
	ShortIDs  []uint64
	Prefilled []PrefilledTx
}

// Reconstructor runs init_from_compact then fill_block against a single
// CompactBlock. It holds no mempool reference of its own — callers pass a
// snapshot so the reconstructor never needs pool_lock.
type Reconstructor struct {
	header       wire.BlockHeader
	key          [16]byte
	txnAvailable []*wire.MsgTx
	shortToSlot  map[uint64]int
	missingSlots []int
	filledCount  int
}

// New creates an empty Reconstructor.
func New() *Reconstructor {
	return &Reconstructor{}
}

// InitFromCompact implements spec.md §4.F init_from_compact. mempoolSnapshot
// is a point-in-time txid -> transaction view the caller took under
// pool_lock; the reconstructor itself never touches the pool.
func (r *Reconstructor) InitFromCompact(cb *CompactBlock,
	mempoolSnapshot map[wire.TxId]*wire.MsgTx) (Status, []int, error) {

	// Step 1: reject degenerate messages.
	if cb.Header.IsNull() {
		return StatusInvalid, nil, errInvalid("null header")
	}
	if len(cb.ShortIDs) == 0 && len(cb.Prefilled) == 0 {
		return StatusInvalid, nil, errInvalid("both short_ids and prefilled are empty")
	}
	total := len(cb.ShortIDs) + len(cb.Prefilled)
	if total > maxBlockSize/minTxWireSize {
		return StatusInvalid, nil, errInvalid("short_ids + prefilled exceeds max possible tx count")
	}

	r.header = cb.Header

	// Step 2.
	r.txnAvailable = make([]*wire.MsgTx, total)

	// Step 3: place prefilled transactions.
	cumSkip := 0
	for i, p := range cb.Prefilled {
		cumSkip += int(p.Skip)
		absIndex := cumSkip + i
		if absIndex > math.MaxUint16 {
			return StatusInvalid, nil, errInvalid("prefilled index exceeds u16 range")
		}
		if absIndex >= len(r.txnAvailable) {
			return StatusInvalid, nil, errInvalid("prefilled index outruns short-id slots")
		}
		if r.txnAvailable[absIndex] != nil {
			return StatusInvalid, nil, errInvalid("prefilled index collides with an earlier entry")
		}
		r.txnAvailable[absIndex] = p.Tx
	}

	// Step 4: assign short ids to the remaining free slots in order,
	// with the anti-DoS bucket-overflow check.
	r.key = deriveKey(&cb.Header, cb.Nonce)
	r.shortToSlot = make(map[uint64]int, len(cb.ShortIDs))
	bucketer := anticache.NewBucketer(shortIDBucketMax)

	slot := 0
	for _, sid := range cb.ShortIDs {
		for slot < len(r.txnAvailable) && r.txnAvailable[slot] != nil {
			slot++
		}
		if slot >= len(r.txnAvailable) {
			return StatusInvalid, nil, errInvalid("more short ids than free slots")
		}
		if bucketer.Add(sid) {
			return StatusFailed, nil, nil
		}
		if _, exists := r.shortToSlot[sid]; !exists {
			r.shortToSlot[sid] = slot
		}
		slot++
	}

	// Step 5: two distinct txids collided onto the same short id.
	if len(r.shortToSlot) != len(cb.ShortIDs) {
		return StatusFailed, nil, nil
	}

	// Step 6: fill from the mempool snapshot.
	r.filledCount = 0
	for txid, tx := range mempoolSnapshot {
		if r.filledCount == len(r.shortToSlot) {
			break
		}
		sid := shortID(r.key, txid)
		idx, ok := r.shortToSlot[sid]
		if !ok {
			continue
		}
		switch {
		case r.txnAvailable[idx] == nil:
			r.txnAvailable[idx] = tx
			r.filledCount++
		case r.txnAvailable[idx].Hash() != txid:
			// A second mempool transaction hashes to the same short id:
			// force the caller to fetch this slot explicitly rather
			// than guessing which one the sender meant.
			r.txnAvailable[idx] = nil
			r.filledCount--
		}
	}

	r.missingSlots = r.missingSlots[:0]
	for i, tx := range r.txnAvailable {
		if tx == nil {
			r.missingSlots = append(r.missingSlots, i)
		}
	}

	return StatusOk, r.missingSlots, nil
}

// FillBlock implements spec.md §4.F fill_block: missing must supply
// exactly one transaction per slot InitFromCompact reported as missing,
// in the same order.
func (r *Reconstructor) FillBlock(missing []*wire.MsgTx) (*wire.MsgBlock, Status, error) {
	if len(missing) != len(r.missingSlots) {
		return nil, StatusInvalid, errInvalid("missing transaction count does not match request")
	}

	vtx := make([]*wire.MsgTx, len(r.txnAvailable))
	copy(vtx, r.txnAvailable)
	for i, slot := range r.missingSlots {
		vtx[slot] = missing[i]
	}
	for _, tx := range vtx {
		if tx == nil {
			return nil, StatusInvalid, errInvalid("slot unfilled after fill_block")
		}
	}

	leaves := make([]wire.TxId, len(vtx))
	for i, tx := range vtx {
		leaves[i] = tx.Hash()
	}
	if computeMerkleRoot(leaves) != r.Header().MerkleRoot {
		// Could be genuine corruption, or a short-id collision the
		// anti-DoS check above didn't catch (finite bucket size):
		// caller should fall back to a full-block request rather than
		// treating the peer as malicious.
		return nil, StatusFailed, nil
	}

	block := &wire.MsgBlock{Header: r.header, Vtx: vtx}
	return block, StatusOk, nil
}

// Header returns the header InitFromCompact was last called with.
func (r *Reconstructor) Header() *wire.BlockHeader { return &r.header }

type invalidError string

func (e invalidError) Error() string { return "compactblock: " + string(e) }

func errInvalid(msg string) error { return invalidError(msg) }
