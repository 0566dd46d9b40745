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

func TestUpdateFromBlockDisconnectMarksDirtyOverBudget(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	root := buildTx(wire.TxId{}, 0, 100_000, 0)
	rootEntry := mustAdd(t, p, root, 1000, now, limits)

	prev := root
	for i := byte(1); i <= 5; i++ {
		child := buildTx(prev.Hash(), 0, 90_000, i)
		mustAdd(t, p, child, 1000, now, limits)
		prev = child
	}

	require.Equal(t, int64(6), rootEntry.CountWithDescendants)

	p.UpdateFromBlockDisconnect([]TxId{root.Hash()}, 2)

	require.True(t, rootEntry.IsDirty())
	require.Equal(t, int64(1), rootEntry.CountWithDescendants)
	require.Equal(t, rootEntry.TxSize, rootEntry.SizeWithDescendants)
}

func TestUpdateFromBlockDisconnectClearsDirtyWithinBudget(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	root := buildTx(wire.TxId{}, 0, 100_000, 0)
	rootEntry := mustAdd(t, p, root, 1000, now, limits)

	child := buildTx(root.Hash(), 0, 90_000, 1)
	mustAdd(t, p, child, 1000, now, limits)

	p.UpdateFromBlockDisconnect([]TxId{root.Hash()}, DefaultDescendantUpdateBudget)

	require.False(t, rootEntry.IsDirty())
	require.Equal(t, int64(2), rootEntry.CountWithDescendants)
}
