// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package compactblock

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/chainrelay/mempool/wire"
)

// computeMerkleRoot implements the block-validity predicate's merkle
// check referenced in spec.md §4.F step 2 (fill_block): the standard
// Bitcoin merkle tree, duplicating the last leaf at each odd-length
// level.
func computeMerkleRoot(leaves []wire.TxId) wire.TxId {
	if len(leaves) == 0 {
		return wire.TxId{}
	}
	level := make([]wire.TxId, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]wire.TxId, len(level)/2)
		for i := 0; i < len(next); i++ {
			var buf [64]byte
			copy(buf[:32], level[2*i][:])
			copy(buf[32:], level[2*i+1][:])
			next[i] = chainhash.DoubleHashH(buf[:])
		}
		level = next
	}
	return level[0]
}
