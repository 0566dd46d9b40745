// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/wire"
)

func TestCheckInvariantsPassesOnCleanPool(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	mustAdd(t, p, parentTx, 1000, now, limits)

	childTx := buildTx(parentTx.Hash(), 0, 90_000, 2)
	mustAdd(t, p, childTx, 1000, now, limits)

	require.NoError(t, p.CheckInvariants())
}

func TestCheckInvariantsCatchesStaleDescendantAggregate(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	parent := mustAdd(t, p, parentTx, 1000, now, limits)

	childTx := buildTx(parentTx.Hash(), 0, 90_000, 2)
	mustAdd(t, p, childTx, 1000, now, limits)

	// Corrupt the cached aggregate directly, bypassing the normal
	// bookkeeping path, to confirm CheckInvariants notices the drift.
	parent.CountWithDescendants = 99

	require.Error(t, p.CheckInvariants())
}
