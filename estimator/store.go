// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package estimator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/DataDog/zstd"
	"github.com/cockroachdb/pebble"
)

// ClientVersion is this build's fee-estimator format version. A store
// written by a future client with VersionRequired > ClientVersion is
// refused outright rather than partially decoded.
const ClientVersion uint32 = 1

// feeEstimatesKey is the sole key the store reads and writes; there is
// only ever one snapshot of estimator state at rest.
var feeEstimatesKey = []byte("fee-estimates")

// Store persists an Estimator's bucket state to an embedded key-value
// database so it survives a restart without re-learning fee conditions
// from scratch.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if necessary) a pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("estimator: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save serializes e's bucket state, compresses it, and writes it under
// the fixed fee-estimates key as
// u32 version_required || u32 version_that_wrote || zstd(body).
func (s *Store) Save(e *Estimator) error {
	e.mu.Lock()
	body := encodeBuckets(e.buckets)
	e.mu.Unlock()

	compressed, err := zstd.Compress(nil, body)
	if err != nil {
		return fmt.Errorf("estimator: compress: %w", err)
	}

	out := make([]byte, 8+len(compressed))
	binary.LittleEndian.PutUint32(out[0:4], ClientVersion)
	binary.LittleEndian.PutUint32(out[4:8], ClientVersion)
	copy(out[8:], compressed)

	return s.db.Set(feeEstimatesKey, out, pebble.Sync)
}

// Load reads a previously saved snapshot into e, replacing its bucket
// state. A missing key is not an error — a fresh estimator has nothing
// to load yet. Any other read or decode error is logged and treated as
// non-fatal (spec §6/§7): the estimator simply starts from a clean
// slate rather than blocking startup on a corrupt cache file.
func (s *Store) Load(e *Estimator) error {
	raw, closer, err := s.db.Get(feeEstimatesKey)
	if err == pebble.ErrNotFound {
		return nil
	}
	if err != nil {
		log.Warnf("estimator: read failed, starting from an empty estimate: %v", err)
		return nil
	}
	defer closer.Close()

	buf := make([]byte, len(raw))
	copy(buf, raw)

	if len(buf) < 8 {
		log.Warnf("estimator: stored snapshot is truncated, starting from an empty estimate")
		return nil
	}
	versionRequired := binary.LittleEndian.Uint32(buf[0:4])
	if versionRequired > ClientVersion {
		log.Warnf("estimator: stored snapshot requires version %d, this build is %d; ignoring",
			versionRequired, ClientVersion)
		return nil
	}

	body, err := zstd.Decompress(nil, buf[8:])
	if err != nil {
		log.Warnf("estimator: decompress failed, starting from an empty estimate: %v", err)
		return nil
	}

	buckets, err := decodeBuckets(body)
	if err != nil {
		log.Warnf("estimator: decode failed, starting from an empty estimate: %v", err)
		return nil
	}

	e.mu.Lock()
	e.buckets = buckets
	e.mu.Unlock()
	return nil
}

// encodeBuckets writes the bucket ladder as a flat sequence of
// fixed-width fields: count, then per bucket feeRate/txCount/confirmedBy.
func encodeBuckets(buckets []bucket) []byte {
	var buf bytes.Buffer
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(buckets)))
	buf.Write(countBuf[:])

	var f [8]byte
	for _, b := range buckets {
		binary.LittleEndian.PutUint64(f[:], math.Float64bits(b.feeRate))
		buf.Write(f[:])
		binary.LittleEndian.PutUint64(f[:], math.Float64bits(b.txCount))
		buf.Write(f[:])
		for _, c := range b.confirmedBy {
			binary.LittleEndian.PutUint64(f[:], math.Float64bits(c))
			buf.Write(f[:])
		}
	}
	return buf.Bytes()
}

func decodeBuckets(body []byte) ([]bucket, error) {
	if len(body) < 4 {
		return nil, fmt.Errorf("estimator: snapshot body truncated")
	}
	count := binary.LittleEndian.Uint32(body[0:4])
	body = body[4:]

	perBucket := 8 + 8 + 8*DefaultMaxConfirmations
	if uint64(len(body)) < uint64(count)*uint64(perBucket) {
		return nil, fmt.Errorf("estimator: snapshot body too short for %d buckets", count)
	}

	buckets := make([]bucket, count)
	for i := range buckets {
		off := i * perBucket
		buckets[i].feeRate = math.Float64frombits(binary.LittleEndian.Uint64(body[off : off+8]))
		buckets[i].txCount = math.Float64frombits(binary.LittleEndian.Uint64(body[off+8 : off+16]))
		for c := 0; c < DefaultMaxConfirmations; c++ {
			start := off + 16 + c*8
			buckets[i].confirmedBy[c] = math.Float64frombits(binary.LittleEndian.Uint64(body[start : start+8]))
		}
	}
	return buckets, nil
}
