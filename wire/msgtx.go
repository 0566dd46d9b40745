// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// TxId is the 32-byte digest that identifies a transaction. It is the real
// chainhash.Hash type from the upstream btcsuite module — reused as-is
// since it is a pure, dependency-free value type with no consensus logic
// attached.
type TxId = chainhash.Hash

const (
	// maxWitnessItemSize and maxWitnessItemsPerInput bound how much a
	// malformed/adversarial witness stack can make us allocate while
	// decoding untrusted bytes.
	maxWitnessItemSize      = 11_000_000
	maxWitnessItemsPerInput = 500_000

	// MaxTxInPerMessage / MaxTxOutPerMessage bound input/output counts
	// read off the wire, mirroring the historical wire.MsgTx limits.
	MaxTxInPerMessage  = 1_000_000
	MaxTxOutPerMessage = 1_000_000

	// witnessMarker / witnessFlag are the two bytes that, when they
	// appear where the input count would otherwise be, signal that a
	// transaction carries segregated witness data.
	witnessMarker = 0x00
	witnessFlag   = 0x01
)

// OutPoint identifies a specific output of a specific transaction.
type OutPoint struct {
	Hash  TxId
	Index uint32
}

// TxIn is a transaction input: a reference to a previous output plus the
// unlocking script and witness data needed to spend it.
type TxIn struct {
	PreviousOutPoint OutPoint
	SignatureScript  []byte
	Witness          [][]byte
	Sequence         uint32
}

// TxOut is a transaction output: an amount and the script that locks it.
type TxOut struct {
	Value    int64
	PkScript []byte
}

// MsgTx is the transaction type the mempool core treats as opaque. Its
// exported accessor methods (Hash, Inputs, OutputsLen, BaseSize,
// TotalSize, Weight, HasWitness, IsCoinBase) are the only surface the
// mempool, eviction engine, and assembler are allowed to depend on.
type MsgTx struct {
	Version  int32
	TxIn     []*TxIn
	TxOut    []*TxOut
	LockTime uint32

	cachedHash *TxId
}

// Hash returns the transaction's double-SHA256 identifier, computed over
// the non-witness serialization (so txid is stable across malleation of
// witness data), and cached after the first call.
func (tx *MsgTx) Hash() TxId {
	if tx.cachedHash != nil {
		return *tx.cachedHash
	}
	var buf bytes.Buffer
	_ = tx.encode(&buf, false)
	h := chainhash.DoubleHashH(buf.Bytes())
	tx.cachedHash = &h
	return h
}

// Inputs returns the transaction's inputs in order.
func (tx *MsgTx) Inputs() []*TxIn { return tx.TxIn }

// OutputsLen returns the number of outputs.
func (tx *MsgTx) OutputsLen() int { return len(tx.TxOut) }

// IsCoinBase reports whether tx has the single null-previous-output input
// that marks a coinbase transaction.
func (tx *MsgTx) IsCoinBase() bool {
	if len(tx.TxIn) != 1 {
		return false
	}
	prevOut := &tx.TxIn[0].PreviousOutPoint
	return prevOut.Index == ^uint32(0) && prevOut.Hash == (TxId{})
}

// HasWitness reports whether any input carries witness data.
func (tx *MsgTx) HasWitness() bool {
	for _, in := range tx.TxIn {
		if len(in.Witness) > 0 {
			return true
		}
	}
	return false
}

// BaseSize returns the serialized size of the transaction without witness
// data (the size miners historically charged for, pre-segwit).
func (tx *MsgTx) BaseSize() int64 {
	var buf bytes.Buffer
	_ = tx.encode(&buf, false)
	return int64(buf.Len())
}

// TotalSize returns the serialized size including witness data, if any.
func (tx *MsgTx) TotalSize() int64 {
	var buf bytes.Buffer
	_ = tx.encode(&buf, tx.HasWitness())
	return int64(buf.Len())
}

// Weight returns the block weight this transaction would consume:
// base_size*4 + witness-inclusive extra bytes.
func (tx *MsgTx) Weight() int64 {
	base := tx.BaseSize()
	total := tx.TotalSize()
	return base*witnessScaleFactorTx + (total - base)
}

const witnessScaleFactorTx = 4

// Serialize writes the canonical, witness-inclusive-if-present encoding of
// tx to w. This is the encoding used for prefilled transactions in the
// compact-block wire format (spec.md §6).
func (tx *MsgTx) Serialize(w io.Writer) error {
	return tx.encode(w, tx.HasWitness())
}

// Deserialize reads a transaction from r using the same encoding Serialize
// writes, auto-detecting the witness marker/flag.
func (tx *MsgTx) Deserialize(r io.Reader) error {
	return tx.decode(r)
}

func (tx *MsgTx) encode(w io.Writer, withWitness bool) error {
	if err := binary.Write(w, binary.LittleEndian, tx.Version); err != nil {
		return err
	}
	if withWitness {
		if _, err := w.Write([]byte{witnessMarker, witnessFlag}); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(tx.TxIn))); err != nil {
		return err
	}
	for _, in := range tx.TxIn {
		if err := binary.Write(w, binary.LittleEndian, in.PreviousOutPoint.Hash); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.PreviousOutPoint.Index); err != nil {
			return err
		}
		if err := writeVarBytes(w, in.SignatureScript); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, in.Sequence); err != nil {
			return err
		}
	}
	if err := WriteVarInt(w, uint64(len(tx.TxOut))); err != nil {
		return err
	}
	for _, out := range tx.TxOut {
		if err := binary.Write(w, binary.LittleEndian, out.Value); err != nil {
			return err
		}
		if err := writeVarBytes(w, out.PkScript); err != nil {
			return err
		}
	}
	if withWitness {
		for _, in := range tx.TxIn {
			if err := WriteVarInt(w, uint64(len(in.Witness))); err != nil {
				return err
			}
			for _, item := range in.Witness {
				if err := writeVarBytes(w, item); err != nil {
					return err
				}
			}
		}
	}
	return binary.Write(w, binary.LittleEndian, tx.LockTime)
}

func (tx *MsgTx) decode(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &tx.Version); err != nil {
		return err
	}

	count, err := ReadVarInt(r)
	if err != nil {
		return err
	}

	withWitness := false
	if count == witnessMarker {
		var flag [1]byte
		if _, err := io.ReadFull(r, flag[:]); err != nil {
			return err
		}
		if flag[0] != witnessFlag {
			return errors.New("wire: unsupported witness flag")
		}
		withWitness = true
		count, err = ReadVarInt(r)
		if err != nil {
			return err
		}
	}
	if count > MaxTxInPerMessage {
		return errors.New("wire: too many transaction inputs")
	}

	tx.TxIn = make([]*TxIn, count)
	for i := range tx.TxIn {
		in := &TxIn{}
		if err := binary.Read(r, binary.LittleEndian, &in.PreviousOutPoint.Hash); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &in.PreviousOutPoint.Index); err != nil {
			return err
		}
		script, err := readVarBytes(r, maxWitnessItemSize, "signature script")
		if err != nil {
			return err
		}
		in.SignatureScript = script
		if err := binary.Read(r, binary.LittleEndian, &in.Sequence); err != nil {
			return err
		}
		tx.TxIn[i] = in
	}

	outCount, err := ReadVarInt(r)
	if err != nil {
		return err
	}
	if outCount > MaxTxOutPerMessage {
		return errors.New("wire: too many transaction outputs")
	}
	tx.TxOut = make([]*TxOut, outCount)
	for i := range tx.TxOut {
		out := &TxOut{}
		if err := binary.Read(r, binary.LittleEndian, &out.Value); err != nil {
			return err
		}
		script, err := readVarBytes(r, maxWitnessItemSize, "pk script")
		if err != nil {
			return err
		}
		out.PkScript = script
		tx.TxOut[i] = out
	}

	if withWitness {
		for _, in := range tx.TxIn {
			itemCount, err := ReadVarInt(r)
			if err != nil {
				return err
			}
			if itemCount > maxWitnessItemsPerInput {
				return errors.New("wire: too many witness items")
			}
			in.Witness = make([][]byte, itemCount)
			for j := range in.Witness {
				item, err := readVarBytes(r, maxWitnessItemSize, "witness item")
				if err != nil {
					return err
				}
				in.Witness[j] = item
			}
		}
	}

	return binary.Read(r, binary.LittleEndian, &tx.LockTime)
}
