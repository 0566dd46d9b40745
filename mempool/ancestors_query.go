// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

// ancestorsLocked returns e's full, unbounded in-mempool ancestor set
// (spec.md §4.E step 6's "calculate_ancestors(entry, ∞)"), via BFS over
// Parents. The returned map never includes e itself. Caller must hold
// the pool lock (read or write).
func (p *Pool) ancestorsLocked(e *Entry) map[TxId]*Entry {
	ancestors := make(map[TxId]*Entry)
	frontier := make([]*Entry, 0, len(e.Parents))
	for _, parent := range e.Parents {
		frontier = append(frontier, parent)
	}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if _, ok := ancestors[cur.TxId]; ok {
			continue
		}
		ancestors[cur.TxId] = cur
		for _, parent := range cur.Parents {
			frontier = append(frontier, parent)
		}
	}
	return ancestors
}

// descendantsLocked returns e's full descendant set (excluding e itself),
// via BFS over Children. Caller must hold the pool lock (read or write).
func (p *Pool) descendantsLocked(e *Entry) map[TxId]*Entry {
	descendants := make(map[TxId]*Entry)
	frontier := make([]*Entry, 0, len(e.Children))
	for _, child := range e.Children {
		frontier = append(frontier, child)
	}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		if _, ok := descendants[cur.TxId]; ok {
			continue
		}
		descendants[cur.TxId] = cur
		for _, child := range cur.Children {
			frontier = append(frontier, child)
		}
	}
	return descendants
}

// EntryAncestors returns the full, unbounded in-mempool ancestor set of an
// entry already present in the pool (spec.md §4.E step 6's
// "calculate_ancestors(entry, ∞)"), via BFS over Parents. The returned map
// never includes e itself.
func (p *Pool) EntryAncestors(e *Entry) map[TxId]*Entry {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.ancestorsLocked(e)
}

// EntryDescendants returns e's full descendant set (excluding e itself),
// via BFS over Children — used by the block assembler's
// update_packages_for_added step to find which pending entries need their
// effective ancestor aggregates reduced after e is added to a template.
func (p *Pool) EntryDescendants(e *Entry) map[TxId]*Entry {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.descendantsLocked(e)
}

// AncestorScoreDescending returns a snapshot of all entries ordered by
// by_ancestor_score, best package first — the base iterator of spec.md
// §4.E's package-selection algorithm.
func (p *Pool) AncestorScoreDescending() []*Entry {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.byAncestorScore.descend()
}

// IsShutdownRequested reports the cooperative cancellation flag long-
// running loops outside the package (the block assembler) must also
// honour.
func (p *Pool) IsShutdownRequested() bool {
	p.lock.RLock()
	defer p.lock.RUnlock()
	return p.shutdownRequested
}
