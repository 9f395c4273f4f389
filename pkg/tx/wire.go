package tx

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/quainet/qi-wallet/pkg/types"
)

// Wire field numbers. Fields are always emitted in ascending order so the
// encoding is canonical: the same transaction always serializes to the same
// bytes.
const (
	fieldChainID   = 1
	fieldTxIn      = 2
	fieldTxOut     = 3
	fieldSignature = 4

	fieldInTxHash = 1
	fieldInIndex  = 2
	fieldInPubKey = 3

	fieldOutAddress = 1
	fieldOutDenom   = 2
	fieldOutLock    = 3
)

// Wire decoding errors.
var (
	ErrZeroSignature = errors.New("signature is all zeros: unsigned transaction passed to signed decoder")
	ErrTruncated     = errors.New("truncated transaction encoding")
)

// EncodeUnsigned serializes the transaction without its signature. This is
// the canonical signing payload.
func (t *Transaction) EncodeUnsigned() []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldChainID, protowire.VarintType)
	buf = protowire.AppendVarint(buf, t.ChainID)

	for _, in := range t.Ins {
		buf = protowire.AppendTag(buf, fieldTxIn, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeTxIn(in))
	}
	for _, out := range t.Outs {
		buf = protowire.AppendTag(buf, fieldTxOut, protowire.BytesType)
		buf = protowire.AppendBytes(buf, encodeTxOut(out))
	}
	return buf
}

// EncodeSigned serializes the transaction including its signature.
// Fails on an unsigned transaction.
func (t *Transaction) EncodeSigned() ([]byte, error) {
	if len(t.Signature) == 0 || allZero(t.Signature) {
		return nil, ErrUnsigned
	}
	buf := t.EncodeUnsigned()
	buf = protowire.AppendTag(buf, fieldSignature, protowire.BytesType)
	buf = protowire.AppendBytes(buf, t.Signature)
	return buf, nil
}

// DecodeSigned parses a signed transaction encoding. A payload whose
// signature is absent or all zeros is rejected: it signals that an unsigned
// transaction was mistakenly passed to the signed-transaction decoder.
func DecodeSigned(data []byte) (*Transaction, error) {
	t, err := decode(data)
	if err != nil {
		return nil, err
	}
	if len(t.Signature) == 0 || allZero(t.Signature) {
		return nil, ErrZeroSignature
	}
	return t, nil
}

// DecodeUnsigned parses a transaction encoding, ignoring any signature field.
func DecodeUnsigned(data []byte) (*Transaction, error) {
	t, err := decode(data)
	if err != nil {
		return nil, err
	}
	t.Signature = nil
	return t, nil
}

func encodeTxIn(in TxIn) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldInTxHash, protowire.BytesType)
	buf = protowire.AppendBytes(buf, in.PrevOut.TxHash[:])
	buf = protowire.AppendTag(buf, fieldInIndex, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(in.PrevOut.Index))
	buf = protowire.AppendTag(buf, fieldInPubKey, protowire.BytesType)
	buf = protowire.AppendBytes(buf, in.PubKey)
	return buf
}

func encodeTxOut(out TxOut) []byte {
	var buf []byte
	buf = protowire.AppendTag(buf, fieldOutAddress, protowire.BytesType)
	buf = protowire.AppendBytes(buf, out.Address[:])
	buf = protowire.AppendTag(buf, fieldOutDenom, protowire.VarintType)
	buf = protowire.AppendVarint(buf, uint64(out.Denomination))
	if out.Lock != 0 {
		buf = protowire.AppendTag(buf, fieldOutLock, protowire.VarintType)
		buf = protowire.AppendVarint(buf, out.Lock)
	}
	return buf
}

func decode(data []byte) (*Transaction, error) {
	t := &Transaction{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, fmt.Errorf("%w: bad tag", ErrTruncated)
		}
		data = data[n:]

		switch {
		case num == fieldChainID && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: chain id", ErrTruncated)
			}
			t.ChainID = v
			data = data[n:]
		case num == fieldTxIn && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: input", ErrTruncated)
			}
			in, err := decodeTxIn(b)
			if err != nil {
				return nil, err
			}
			t.Ins = append(t.Ins, in)
			data = data[n:]
		case num == fieldTxOut && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: output", ErrTruncated)
			}
			out, err := decodeTxOut(b)
			if err != nil {
				return nil, err
			}
			t.Outs = append(t.Outs, out)
			data = data[n:]
		case num == fieldSignature && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, fmt.Errorf("%w: signature", ErrTruncated)
			}
			t.Signature = append([]byte(nil), b...)
			data = data[n:]
		default:
			return nil, fmt.Errorf("unexpected wire field %d (type %d)", num, typ)
		}
	}
	return t, nil
}

func decodeTxIn(data []byte) (TxIn, error) {
	var in TxIn
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return in, fmt.Errorf("%w: input tag", ErrTruncated)
		}
		data = data[n:]

		switch {
		case num == fieldInTxHash && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return in, fmt.Errorf("%w: input txhash", ErrTruncated)
			}
			if len(b) != types.HashSize {
				return in, fmt.Errorf("input txhash must be %d bytes, got %d", types.HashSize, len(b))
			}
			copy(in.PrevOut.TxHash[:], b)
			data = data[n:]
		case num == fieldInIndex && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return in, fmt.Errorf("%w: input index", ErrTruncated)
			}
			if v > 0xffff {
				return in, fmt.Errorf("input index %d out of range", v)
			}
			in.PrevOut.Index = uint16(v)
			data = data[n:]
		case num == fieldInPubKey && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return in, fmt.Errorf("%w: input pubkey", ErrTruncated)
			}
			in.PubKey = append([]byte(nil), b...)
			data = data[n:]
		default:
			return in, fmt.Errorf("unexpected input field %d (type %d)", num, typ)
		}
	}
	return in, nil
}

func decodeTxOut(data []byte) (TxOut, error) {
	var out TxOut
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return out, fmt.Errorf("%w: output tag", ErrTruncated)
		}
		data = data[n:]

		switch {
		case num == fieldOutAddress && typ == protowire.BytesType:
			b, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return out, fmt.Errorf("%w: output address", ErrTruncated)
			}
			addr, err := types.BytesToAddress(b)
			if err != nil {
				return out, fmt.Errorf("output address: %w", err)
			}
			out.Address = addr
			data = data[n:]
		case num == fieldOutDenom && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, fmt.Errorf("%w: output denomination", ErrTruncated)
			}
			if !types.Denomination(v).Valid() || v > uint64(types.MaxDenomination) {
				return out, fmt.Errorf("invalid output denomination %d", v)
			}
			out.Denomination = types.Denomination(v)
			data = data[n:]
		case num == fieldOutLock && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return out, fmt.Errorf("%w: output lock", ErrTruncated)
			}
			out.Lock = v
			data = data[n:]
		default:
			return out, fmt.Errorf("unexpected output field %d (type %d)", num, typ)
		}
	}
	return out, nil
}

func allZero(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
