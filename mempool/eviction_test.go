// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

// zeroSource is a rand.Source that always returns zero, so Intn(n) always
// returns 0 — used to make TrimToSize's sampling throttle deterministic
// in tests instead of flaking on the 9/10 skip probability.
type zeroSource struct{}

func (zeroSource) Int63() int64  { return 0 }
func (zeroSource) Seed(int64)    {}

func noSkipRand() *rand.Rand { return rand.New(zeroSource{}) }

func TestTrimToSizeEvictsWorstFeeRateFirst(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	txLow := buildTx(wire.TxId{}, 0, 100_000, 1)
	lowEntry := mustAdd(t, p, txLow, 1000, now, limits)

	txMid := buildTx(wire.TxId{}, 1, 100_000, 2)
	mustAdd(t, p, txMid, 5000, now, limits)

	txHigh := buildTx(wire.TxId{}, 2, 100_000, 3)
	mustAdd(t, p, txHigh, 10_000, now, limits)

	target := p.TotalTxSize() - lowEntry.TxSize

	evicted, _, ok := p.TrimToSize(target, nil, primitives.FeeRate{}, 0, false, noSkipRand(), nil)

	require.True(t, ok)
	require.Equal(t, []TxId{txLow.Hash()}, evicted)
	require.False(t, p.Exists(txLow.Hash()))
	require.True(t, p.Exists(txMid.Hash()))
	require.True(t, p.Exists(txHigh.Hash()))
	require.NoError(t, p.CheckInvariants())
}

func TestTrimToSizeProtectsSpentAncestor(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	parent := mustAdd(t, p, parentTx, 1000, now, limits)

	incoming := &IncomingCandidate{
		FeeRate: primitives.NewFeeRate(50_000, 250),
		Fee:     50_000,
		Protect: map[TxId]bool{parent.TxId: true},
	}

	evicted, _, _ := p.TrimToSize(0, incoming, primitives.FeeRate{}, 0, false, noSkipRand(), nil)

	require.Empty(t, evicted)
	require.True(t, p.Exists(parentTx.Hash()))
}
