// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/chainrelay/mempool/events"
	"github.com/chainrelay/mempool/primitives"
	"github.com/chainrelay/mempool/wire"
)

func mustAdd(t *testing.T, p *Pool, tx *wire.MsgTx, fee primitives.CAmount,
	at time.Time, limits AncestorLimits) *Entry {
	t.Helper()
	ancestors, err := p.CalculateAncestors(tx, primitives.VSize(tx.Weight()), limits)
	require.NoError(t, err)
	e, err := p.AddUnchecked(tx, fee, at, 100, 0, true, ancestors)
	require.NoError(t, err)
	return e
}

func TestAddUncheckedAncestorAndDescendantAggregates(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	parent := mustAdd(t, p, parentTx, 1000, now, limits)

	childTx := buildTx(parentTx.Hash(), 0, 90_000, 2)
	child := mustAdd(t, p, childTx, 2000, now, limits)

	require.Equal(t, int64(2), parent.CountWithDescendants)
	require.Equal(t, parent.TxSize+child.TxSize, parent.SizeWithDescendants)
	require.Equal(t, primitives.CAmount(3000), parent.FeesWithDescendants)

	require.Equal(t, int64(2), child.CountWithAncestors)
	require.Equal(t, parent.TxSize+child.TxSize, child.SizeWithAncestors)
	require.Equal(t, primitives.CAmount(3000), child.ModFeesWithAncestors)

	require.NoError(t, p.CheckInvariants())
}

func TestCalculateAncestorsEnforcesCountLimit(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	limits.MaxCount = 2
	now := time.Now()

	tx1 := buildTx(wire.TxId{}, 0, 100_000, 1)
	mustAdd(t, p, tx1, 1000, now, limits)

	tx2 := buildTx(tx1.Hash(), 0, 90_000, 2)
	mustAdd(t, p, tx2, 1000, now, limits)

	tx3 := buildTx(tx2.Hash(), 0, 80_000, 3)
	mustAdd(t, p, tx3, 1000, now, limits)

	tx4 := buildTx(tx3.Hash(), 0, 70_000, 4)
	_, err := p.CalculateAncestors(tx4, primitives.VSize(tx4.Weight()), limits)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTooManyAncestors))
}

func TestRemoveRecursiveRemovesDescendantsAndClearsSpendMap(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	mustAdd(t, p, parentTx, 1000, now, limits)

	childTx := buildTx(parentTx.Hash(), 0, 90_000, 2)
	mustAdd(t, p, childTx, 1000, now, limits)

	p.RemoveRecursive(parentTx.Hash(), events.ReasonReorg)

	require.False(t, p.Exists(parentTx.Hash()))
	require.False(t, p.Exists(childTx.Hash()))
	require.Equal(t, 0, len(p.nextTx))
	require.NoError(t, p.CheckInvariants())
}

func TestRemoveForBlockRemovesConflicts(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	spentOutpoint := wire.TxId{0xaa}
	txA := buildTx(spentOutpoint, 0, 100_000, 1)
	mustAdd(t, p, txA, 1000, now, limits)

	// txB, confirmed in a block, double-spends the same outpoint as txA.
	txB := buildTx(spentOutpoint, 0, 100_000, 2)

	_, removedConflicts := p.RemoveForBlock([]*wire.MsgTx{txB}, 101)

	require.Contains(t, removedConflicts, txA.Hash())
	require.False(t, p.Exists(txA.Hash()))
	require.Equal(t, 0, len(p.nextTx))
}

func TestPrioritisePersistsAcrossRemovalAndReAdd(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	tx := buildTx(wire.TxId{}, 0, 100_000, 1)
	entry := mustAdd(t, p, tx, 1000, now, limits)
	require.Equal(t, primitives.CAmount(1000), entry.ModFee())

	p.Prioritise(tx.Hash(), 0, 500)
	require.Equal(t, primitives.CAmount(1500), entry.ModFee())

	p.RemoveRecursive(tx.Hash(), events.ReasonReorg)
	require.False(t, p.Exists(tx.Hash()))

	reAdded := mustAdd(t, p, tx, 1000, now, limits)
	require.Equal(t, primitives.CAmount(1500), reAdded.ModFee())
}

func TestPrioritisePropagatesToAncestorsAndDescendants(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	parentTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	parent := mustAdd(t, p, parentTx, 1000, now, limits)

	childTx := buildTx(parentTx.Hash(), 0, 90_000, 2)
	child := mustAdd(t, p, childTx, 2000, now, limits)

	require.Equal(t, primitives.CAmount(3000), parent.FeesWithDescendants)
	require.Equal(t, primitives.CAmount(3000), child.ModFeesWithAncestors)

	p.Prioritise(childTx.Hash(), 0, 500)

	require.Equal(t, primitives.CAmount(2500), child.ModFee())
	require.Equal(t, primitives.CAmount(3500), parent.FeesWithDescendants,
		"prioritising the child must roll its fee delta up into the parent's descendant aggregate")
	require.Equal(t, primitives.CAmount(3500), child.ModFeesWithAncestors,
		"prioritising an entry must also update its own ancestor aggregate")

	p.Prioritise(parentTx.Hash(), 0, 100)

	require.Equal(t, primitives.CAmount(3600), child.ModFeesWithAncestors,
		"prioritising the parent must roll its fee delta down into the child's ancestor aggregate")
	require.Equal(t, primitives.CAmount(3600), parent.FeesWithDescendants,
		"prioritising an entry must also update its own descendant aggregate")

	require.NoError(t, p.CheckInvariants())
}

func TestExpireRemovesOnlyOlderThanCutoff(t *testing.T) {
	p := New(nil, nil)
	limits := DefaultAncestorLimits()
	now := time.Now()

	oldTx := buildTx(wire.TxId{}, 0, 100_000, 1)
	mustAdd(t, p, oldTx, 1000, now.Add(-2*time.Hour), limits)

	freshTx := buildTx(wire.TxId{}, 1, 100_000, 2)
	mustAdd(t, p, freshTx, 1000, now, limits)

	removed := p.Expire(now.Add(-1 * time.Hour))

	require.Equal(t, 1, removed)
	require.False(t, p.Exists(oldTx.Hash()))
	require.True(t, p.Exists(freshTx.Hash()))
}
