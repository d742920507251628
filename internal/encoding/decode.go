package encoding

import (
	"encoding/binary"
	"fmt"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sergerad/nolemma/internal/domain"
)

// cursor reads sequential fields out of a canonical-encoding byte slice,
// mirroring the put* helpers in canonical.go field for field. Any read past
// the end of buf is reported as domain.ErrMalformedEncoding.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || n > len(c.buf)-c.pos {
		return nil, fmt.Errorf("encoding: %w: unexpected end of input", domain.ErrMalformedEncoding)
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

func (c *cursor) byte() (byte, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *cursor) uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (c *cursor) bigInt256() (*big.Int, error) {
	b, err := c.take(32)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

func (c *cursor) bytes() ([]byte, error) {
	n, err := c.uint64()
	if err != nil {
		return nil, err
	}
	return c.take(int(n))
}

func (c *cursor) address() (domain.Address, error) {
	b, err := c.take(20)
	if err != nil {
		return domain.Address{}, err
	}
	var a domain.Address
	a.SetBytes(b)
	return a, nil
}

func (c *cursor) optionalAddress() (*domain.Address, error) {
	present, err := c.byte()
	if err != nil {
		return nil, err
	}
	if present == 0x00 {
		return nil, nil
	}
	a, err := c.address()
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *cursor) hash() (domain.Hash, error) {
	b, err := c.take(32)
	if err != nil {
		return domain.Hash{}, err
	}
	var h domain.Hash
	h.SetBytes(b)
	return h, nil
}

func (c *cursor) optionalHash() (*domain.Hash, error) {
	present, err := c.byte()
	if err != nil {
		return nil, err
	}
	if present == 0x00 {
		return nil, nil
	}
	h, err := c.hash()
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *cursor) accessList() (domain.AccessList, error) {
	n, err := c.uint64()
	if err != nil {
		return nil, err
	}
	list := make(domain.AccessList, 0) // n is untrusted; grow as entries are read
	for i := uint64(0); i < n; i++ {
		addr, err := c.address()
		if err != nil {
			return nil, err
		}
		keyCount, err := c.uint64()
		if err != nil {
			return nil, err
		}
		keys := make([]domain.Hash, 0)
		for j := uint64(0); j < keyCount; j++ {
			h, err := c.hash()
			if err != nil {
				return nil, err
			}
			keys = append(keys, h)
		}
		list = append(list, ethtypes.AccessTuple{Address: addr, StorageKeys: keys})
	}
	return list, nil
}

func (c *cursor) signature() (domain.Signature, error) {
	r, err := c.take(32)
	if err != nil {
		return domain.Signature{}, err
	}
	s, err := c.take(32)
	if err != nil {
		return domain.Signature{}, err
	}
	v, err := c.byte()
	if err != nil {
		return domain.Signature{}, err
	}
	var sig domain.Signature
	copy(sig.R[:], r)
	copy(sig.S[:], s)
	sig.V = v
	return sig, nil
}

// EncodeTransaction returns tx's full canonical wire encoding, including its
// signature. This is the byte format SubmitTx consumes and SealedBlock
// transactions are carried as.
func EncodeTransaction(tx *domain.Transaction) ([]byte, error) {
	return transactionBytes(tx)
}

// DecodeTransaction parses a transaction from its canonical wire encoding.
// It returns domain.ErrMalformedEncoding if data is truncated or carries an
// unknown discriminator.
func DecodeTransaction(data []byte) (*domain.Transaction, error) {
	c := &cursor{buf: data}
	discr, err := c.byte()
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{}
	switch discr {
	case discrDynamicTx:
		tx.Type = domain.TxTypeDynamic
		d := &domain.DynamicTxData{}
		if d.ChainID, err = c.bigInt256(); err != nil {
			return nil, err
		}
		if d.Nonce, err = c.uint64(); err != nil {
			return nil, err
		}
		if d.MaxPriorityFeePerGas, err = c.bigInt256(); err != nil {
			return nil, err
		}
		if d.MaxFeePerGas, err = c.bigInt256(); err != nil {
			return nil, err
		}
		if d.GasLimit, err = c.uint64(); err != nil {
			return nil, err
		}
		if d.To, err = c.optionalAddress(); err != nil {
			return nil, err
		}
		if d.Value, err = c.bigInt256(); err != nil {
			return nil, err
		}
		if d.Data, err = c.bytes(); err != nil {
			return nil, err
		}
		if d.AccessList, err = c.accessList(); err != nil {
			return nil, err
		}
		tx.Dynamic = d
	case discrWithdrawalTx:
		tx.Type = domain.TxTypeWithdrawal
		w := &domain.WithdrawalTxData{}
		if w.Nonce, err = c.uint64(); err != nil {
			return nil, err
		}
		if w.Recipient, err = c.address(); err != nil {
			return nil, err
		}
		if w.Value, err = c.bigInt256(); err != nil {
			return nil, err
		}
		tx.Withdrawal = w
	default:
		return nil, fmt.Errorf("encoding: %w: unknown tx discriminator 0x%02x", domain.ErrMalformedEncoding, discr)
	}

	sig, err := c.signature()
	if err != nil {
		return nil, err
	}
	tx.Signature = sig
	return tx, nil
}

// EncodeHeader returns the signed header's canonical wire encoding,
// including its signature.
func EncodeHeader(signed domain.SignedBlockHeader) []byte {
	buf := headerBytes(&signed.Header)
	buf = append(buf, signed.Signature.R[:]...)
	buf = append(buf, signed.Signature.S[:]...)
	buf = append(buf, signed.Signature.V)
	return buf
}

// DecodeHeader parses a signed block header from its canonical wire
// encoding.
func DecodeHeader(data []byte) (domain.SignedBlockHeader, error) {
	c := &cursor{buf: data}
	discr, err := c.byte()
	if err != nil {
		return domain.SignedBlockHeader{}, err
	}
	if discr != discrHeader {
		return domain.SignedBlockHeader{}, fmt.Errorf("encoding: %w: expected header discriminator, got 0x%02x", domain.ErrMalformedEncoding, discr)
	}
	var h domain.BlockHeader
	if h.Sequencer, err = c.address(); err != nil {
		return domain.SignedBlockHeader{}, err
	}
	if h.Number, err = c.uint64(); err != nil {
		return domain.SignedBlockHeader{}, err
	}
	if h.Timestamp, err = c.uint64(); err != nil {
		return domain.SignedBlockHeader{}, err
	}
	if h.ParentDigest, err = c.optionalHash(); err != nil {
		return domain.SignedBlockHeader{}, err
	}
	if h.WithdrawalsRoot, err = c.hash(); err != nil {
		return domain.SignedBlockHeader{}, err
	}
	if h.TransactionsRoot, err = c.hash(); err != nil {
		return domain.SignedBlockHeader{}, err
	}
	sig, err := c.signature()
	if err != nil {
		return domain.SignedBlockHeader{}, err
	}
	return domain.SignedBlockHeader{Header: h, Signature: sig}, nil
}

// EncodeBlock returns the canonical wire encoding of a full block: its
// signed header followed by a length-prefixed list of its transactions,
// each individually canonically encoded.
func EncodeBlock(b *domain.Block) ([]byte, error) {
	buf := EncodeHeader(b.SignedHeader)
	buf = putUint64(buf, uint64(len(b.Transactions)))
	for _, tx := range b.Transactions {
		raw, err := EncodeTransaction(tx)
		if err != nil {
			return nil, err
		}
		buf = putBytes(buf, raw)
	}
	return buf, nil
}

// DecodeBlock parses a full block from its canonical wire encoding.
func DecodeBlock(data []byte) (*domain.Block, error) {
	c := &cursor{buf: data}

	// The header's byte length is variable only in the optional-parent-digest
	// presence byte, so its end is found by replaying the same field reads
	// DecodeHeader performs, then handing the remainder to the tx loop.
	start := c.pos
	var err error
	if _, err = c.byte(); err != nil {
		return nil, err
	}
	if _, err = c.address(); err != nil {
		return nil, err
	}
	if _, err = c.uint64(); err != nil {
		return nil, err
	}
	if _, err = c.uint64(); err != nil {
		return nil, err
	}
	if _, err = c.optionalHash(); err != nil {
		return nil, err
	}
	if _, err = c.hash(); err != nil {
		return nil, err
	}
	if _, err = c.hash(); err != nil {
		return nil, err
	}
	if _, err = c.signature(); err != nil {
		return nil, err
	}
	headerBytesLen := c.pos - start

	signed, err := DecodeHeader(data[start : start+headerBytesLen])
	if err != nil {
		return nil, err
	}

	count, err := c.uint64()
	if err != nil {
		return nil, err
	}
	txs := make([]*domain.Transaction, 0, count)
	for i := uint64(0); i < count; i++ {
		raw, err := c.bytes()
		if err != nil {
			return nil, err
		}
		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}

	return &domain.Block{SignedHeader: signed, Transactions: txs}, nil
}
