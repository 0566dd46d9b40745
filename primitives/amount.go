// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package primitives implements the fee, fee-rate, and weight/size
// arithmetic shared by the mempool, eviction engine, and block assembler.
// All arithmetic here saturates rather than overflows or panics, matching
// the conservative semantics the spec requires of consensus-adjacent
// amount math.
package primitives

import "math"

// CAmount is a 64-bit signed count of the minimum monetary unit.
type CAmount int64

const (
	// SatoshiPerBitcoin is the number of base units in one whole coin.
	SatoshiPerBitcoin = 1e8

	// MaxMoney is the maximum number of base units that can ever exist.
	// GetValueOut saturates at this value rather than overflowing.
	MaxMoney CAmount = 21_000_000 * SatoshiPerBitcoin
)

// Add saturates at MaxMoney/-MaxMoney instead of wrapping on overflow.
func (a CAmount) Add(b CAmount) CAmount {
	sum := a + b

	// Overflow check: if both operands share a sign and the result's sign
	// differs, the add overflowed int64.
	if (a > 0 && b > 0 && sum < 0) || (a < 0 && b < 0 && sum > 0) {
		if a > 0 {
			return MaxMoney
		}
		return -MaxMoney
	}
	if sum > MaxMoney {
		return MaxMoney
	}
	if sum < -MaxMoney {
		return -MaxMoney
	}
	return sum
}

// GetValueOut sums a list of output values, saturating at MaxMoney. Any
// individual negative or out-of-range value is treated as zero contribution,
// matching the defensive posture of consensus code that must never panic on
// attacker-supplied data.
func GetValueOut(outputs []CAmount) CAmount {
	var total CAmount
	for _, v := range outputs {
		if v < 0 || v > MaxMoney {
			continue
		}
		total = total.Add(v)
		if total > MaxMoney {
			return MaxMoney
		}
	}
	return total
}

// FeeRate associates a fee with a size in bytes, expressed as
// satoshi-per-thousand-bytes.
type FeeRate struct {
	SatoshisPerKB CAmount
}

// NewFeeRate derives a FeeRate from an absolute fee and the size it paid
// for. A zero or negative size yields a zero rate.
func NewFeeRate(fee CAmount, size int64) FeeRate {
	if size <= 0 {
		return FeeRate{}
	}
	return FeeRate{SatoshisPerKB: CAmount((int64(fee) * 1000) / size)}
}

// FeeForSize computes the fee owed for a given size at this rate. Division
// truncates toward zero; the result is never negative (a negative rate
// yields 0) and saturates at MaxMoney on overflow.
//
//	fee_for(size) = (fee_per_kB * size) / 1000
//
// Bitcoin Core's comment warns against rounding the division up
// ((x+999)/1000) — this implementation deliberately truncates.
func (r FeeRate) FeeForSize(size int64) CAmount {
	if size <= 0 || r.SatoshisPerKB <= 0 {
		return 0
	}
	if size > math.MaxInt64/int64(r.SatoshisPerKB) {
		return MaxMoney
	}
	fee := int64(r.SatoshisPerKB) * size / 1000
	if fee > int64(MaxMoney) {
		return MaxMoney
	}
	return CAmount(fee)
}

// Less reports whether r pays a strictly lower rate than other.
func (r FeeRate) Less(other FeeRate) bool {
	return r.SatoshisPerKB < other.SatoshisPerKB
}

const (
	// WitnessScaleFactor is the discount factor applied to non-witness
	// bytes when computing block weight.
	WitnessScaleFactor = 4
)

// Weight computes block weight from a transaction's base (non-witness)
// size and its total serialized size (including witness data):
//
//	weight = base_size*4 + (total_size - base_size)
func Weight(baseSize, totalSize int64) int64 {
	witnessBytes := totalSize - baseSize
	if witnessBytes < 0 {
		witnessBytes = 0
	}
	return baseSize*WitnessScaleFactor + witnessBytes
}

// VSize computes virtual size (vsize) from weight: ceil(weight/4).
func VSize(weight int64) int64 {
	return int64(math.Ceil(float64(weight) / WitnessScaleFactor))
}
