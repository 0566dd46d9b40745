// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import "sync"

// poolLock is the spec's named pool_lock (spec.md §5). It is a plain
// sync.RWMutex under a name that documents the lock-ordering contract:
// callers that also need chain_lock (owned by the block-assembler's
// caller) must acquire it first, then poolLock, never the reverse.
type poolLock struct {
	sync.RWMutex
}
