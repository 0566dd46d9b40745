// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "sort"

// scoreIndex is a multi-key ordered set over *Entry, kept sorted
// ascending by a caller-supplied comparator. Spec.md §9's design note
// calls for independent index structures keyed by (score, txid) with
// O(log n) re-ranking; this implementation uses a single sorted slice
// with binary-search insertion (O(log n) search plus an O(n) shift) and a linear-scan removal
// (O(n)) rather than a full B-tree, since the pool sizes exercised by
// this core's tests and the reference Bitcoin Core default policy
// (mempool in the tens of thousands of entries) do not warrant the
// extra structure. DESIGN.md records this simplification.
type scoreIndex struct {
	less  func(a, b *Entry) bool
	items []*Entry
}

func newScoreIndex(less func(a, b *Entry) bool) *scoreIndex {
	return &scoreIndex{less: less}
}

// insert adds e, maintaining ascending order.
func (s *scoreIndex) insert(e *Entry) {
	i := sort.Search(len(s.items), func(i int) bool {
		return s.less(e, s.items[i])
	})
	s.items = append(s.items, nil)
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = e
}

// remove deletes e from the index. It is a no-op if e is not present.
func (s *scoreIndex) remove(e *Entry) {
	for i, item := range s.items {
		if item == e {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// reindex removes and reinserts e, used after e's sort key changes
// (spec.md I4: "re-indexed on aggregate change").
func (s *scoreIndex) reindex(e *Entry) {
	s.remove(e)
	s.insert(e)
}

// ascend returns a snapshot slice in ascending order.
func (s *scoreIndex) ascend() []*Entry {
	out := make([]*Entry, len(s.items))
	copy(out, s.items)
	return out
}

// descend returns a snapshot slice in descending order.
func (s *scoreIndex) descend() []*Entry {
	out := make([]*Entry, len(s.items))
	for i, e := range s.items {
		out[len(s.items)-1-i] = e
	}
	return out
}

func (s *scoreIndex) len() int { return len(s.items) }

// byTxIdLess orders hashes lexicographically smallest-first.
func byTxIdLess(a, b TxId) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// descendantScoreLess implements the by_descendant_score ascending
// storage order: ascending score (worst first), and — since the spec
// defines the *descending* (best-first) view's tie-break as "older
// entries first" — the reverse-ordered tie-break of newer-first within
// an ascending scan.
func descendantScoreLess(a, b *Entry) bool {
	sa, sb := a.descendantScore(), b.descendantScore()
	if sa != sb {
		return sa < sb
	}
	return a.Time.After(b.Time)
}

// ancestorScoreLess implements the by_ancestor_score ascending storage
// order: ascending score, with the descending view's "lower txid first"
// tie-break translating to higher-txid-first in this ascending view.
func ancestorScoreLess(a, b *Entry) bool {
	sa, sb := a.ancestorScore(), b.ancestorScore()
	if sa != sb {
		return sa < sb
	}
	return byTxIdLess(b.TxId, a.TxId)
}

// timeIndex keeps entries ordered ascending by entry time for expiry
// scans (by_entry_time).
type timeIndex struct {
	items []*Entry
}

func (t *timeIndex) insert(e *Entry) {
	i := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].Time.After(e.Time)
	})
	t.items = append(t.items, nil)
	copy(t.items[i+1:], t.items[i:])
	t.items[i] = e
}

func (t *timeIndex) remove(e *Entry) {
	for i, item := range t.items {
		if item == e {
			t.items = append(t.items[:i], t.items[i+1:]...)
			return
		}
	}
}

func (t *timeIndex) len() int { return len(t.items) }

func (t *timeIndex) ascend() []*Entry {
	out := make([]*Entry, len(t.items))
	copy(out, t.items)
	return out
}
