// Package encoding implements the canonical, deterministic byte encoding
// used both to hash and to sign transactions and block headers. It is the
// one place in the codebase that knows the wire layout; every other package
// reaches the chain's bytes only through this package.
package encoding

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/sergerad/nolemma/internal/crypto"
	"github.com/sergerad/nolemma/internal/domain"
)

// Discriminator bytes domain-separate every encoded value so no header can
// collide with any transaction, and no transaction variant collides with
// another.
const (
	discrDynamicTx    byte = 0x01
	discrWithdrawalTx byte = 0x02
	discrHeader       byte = 0x10
)

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putBigInt256(buf []byte, v *big.Int) []byte {
	var b [32]byte
	if v != nil {
		v.FillBytes(b[:])
	}
	return append(buf, b[:]...)
}

func putBytes(buf []byte, data []byte) []byte {
	buf = putUint64(buf, uint64(len(data)))
	return append(buf, data...)
}

func putAddress(buf []byte, a domain.Address) []byte {
	return append(buf, a.Bytes()...)
}

func putOptionalAddress(buf []byte, a *domain.Address) []byte {
	if a == nil {
		return append(buf, 0x00)
	}
	buf = append(buf, 0x01)
	return putAddress(buf, *a)
}

func putHash(buf []byte, h domain.Hash) []byte {
	return append(buf, h.Bytes()...)
}

func putOptionalHash(buf []byte, h *domain.Hash) []byte {
	if h == nil {
		return append(buf, 0x00)
	}
	buf = append(buf, 0x01)
	return putHash(buf, *h)
}

func putAccessList(buf []byte, list domain.AccessList) []byte {
	buf = putUint64(buf, uint64(len(list)))
	for _, tuple := range list {
		buf = putAddress(buf, tuple.Address)
		buf = putUint64(buf, uint64(len(tuple.StorageKeys)))
		for _, key := range tuple.StorageKeys {
			buf = append(buf, key.Bytes()...)
		}
	}
	return buf
}

// txSigningBytes returns the canonical encoding of tx's fields EXCLUDING the
// signature — the preimage that gets signed and recovered against.
func txSigningBytes(tx *domain.Transaction) ([]byte, error) {
	switch tx.Type {
	case domain.TxTypeDynamic:
		d := tx.Dynamic
		if d == nil {
			return nil, fmt.Errorf("encoding: %w: dynamic tx missing data", domain.ErrMalformedEncoding)
		}
		buf := []byte{discrDynamicTx}
		buf = putBigInt256(buf, d.ChainID)
		buf = putUint64(buf, d.Nonce)
		buf = putBigInt256(buf, d.MaxPriorityFeePerGas)
		buf = putBigInt256(buf, d.MaxFeePerGas)
		buf = putUint64(buf, d.GasLimit)
		buf = putOptionalAddress(buf, d.To)
		buf = putBigInt256(buf, d.Value)
		buf = putBytes(buf, d.Data)
		buf = putAccessList(buf, d.AccessList)
		return buf, nil
	case domain.TxTypeWithdrawal:
		w := tx.Withdrawal
		if w == nil {
			return nil, fmt.Errorf("encoding: %w: withdrawal tx missing data", domain.ErrMalformedEncoding)
		}
		buf := []byte{discrWithdrawalTx}
		buf = putUint64(buf, w.Nonce)
		buf = putAddress(buf, w.Recipient)
		buf = putBigInt256(buf, w.Value)
		return buf, nil
	default:
		return nil, fmt.Errorf("encoding: %w: unknown tx type %d", domain.ErrMalformedEncoding, tx.Type)
	}
}

// TransactionSigningDigest is the 32-byte Keccak-256 digest a sender signs
// and that Recover is called against.
func TransactionSigningDigest(tx *domain.Transaction) (domain.Hash, error) {
	raw, err := txSigningBytes(tx)
	if err != nil {
		return domain.Hash{}, err
	}
	return crypto.Keccak256(raw), nil
}

// SignTransaction signs tx's signing digest with kp and attaches the
// resulting signature.
func SignTransaction(kp *crypto.Keypair, tx *domain.Transaction) error {
	digest, err := TransactionSigningDigest(tx)
	if err != nil {
		return err
	}
	sig, err := crypto.Sign(kp, digest)
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// RecoverSender recovers the address that signed tx. It returns
// domain.ErrInvalidSignature if recovery fails.
func RecoverSender(tx *domain.Transaction) (domain.Address, error) {
	digest, err := TransactionSigningDigest(tx)
	if err != nil {
		return domain.Address{}, err
	}
	return crypto.Recover(tx.Signature, digest)
}

// transactionBytes is the canonical encoding of tx INCLUDING its signature —
// the preimage of the transaction hash.
func transactionBytes(tx *domain.Transaction) ([]byte, error) {
	buf, err := txSigningBytes(tx)
	if err != nil {
		return nil, err
	}
	buf = append(buf, tx.Signature.R[:]...)
	buf = append(buf, tx.Signature.S[:]...)
	buf = append(buf, tx.Signature.V)
	return buf, nil
}

// TransactionHash is the Keccak-256 of tx's full canonical encoding,
// including its signature. Two transactions are equal iff their hashes are
// equal.
func TransactionHash(tx *domain.Transaction) (domain.Hash, error) {
	raw, err := transactionBytes(tx)
	if err != nil {
		return domain.Hash{}, err
	}
	return crypto.Keccak256(raw), nil
}

// headerBytes is the canonical encoding of a block header.
func headerBytes(h *domain.BlockHeader) []byte {
	buf := []byte{discrHeader}
	buf = putAddress(buf, h.Sequencer)
	buf = putUint64(buf, h.Number)
	buf = putUint64(buf, h.Timestamp)
	buf = putOptionalHash(buf, h.ParentDigest)
	buf = putHash(buf, h.WithdrawalsRoot)
	buf = putHash(buf, h.TransactionsRoot)
	return buf
}

// HeaderDigest is the Keccak-256 of the header's canonical encoding.
func HeaderDigest(h *domain.BlockHeader) domain.Hash {
	return crypto.Keccak256(headerBytes(h))
}

// SignHeader signs header's digest with kp and returns the resulting
// SignedBlockHeader.
func SignHeader(kp *crypto.Keypair, header domain.BlockHeader) (domain.SignedBlockHeader, error) {
	digest := HeaderDigest(&header)
	sig, err := crypto.Sign(kp, digest)
	if err != nil {
		return domain.SignedBlockHeader{}, err
	}
	return domain.SignedBlockHeader{Header: header, Signature: sig}, nil
}

// VerifyHeaderSignature reports whether signed's signature is valid for its
// own header digest under sequencer.
func VerifyHeaderSignature(signed domain.SignedBlockHeader, sequencer domain.Address) bool {
	digest := HeaderDigest(&signed.Header)
	return crypto.Verify(sequencer, signed.Signature, digest)
}
