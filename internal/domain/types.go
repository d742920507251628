// Package domain defines the core data shapes of the Nolemma sequencer:
// hashes, addresses, transactions, block headers and blocks. It holds no
// business logic of its own — hashing, signing and root computation live in
// the crypto, encoding and merkle packages so that this package stays a
// plain, dependency-light value layer that every other package can import.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// Hash is a 32-byte Keccak-256 digest.
type Hash = common.Hash

// Address is the rightmost 20 bytes of the Keccak-256 hash of an
// uncompressed secp256k1 public key, Ethereum-style.
type Address = common.Address

// AccessList is reused directly from go-ethereum; the Dynamic transaction
// variant carries one verbatim.
type AccessList = ethtypes.AccessList

// Signature is a secp256k1 ECDSA signature with an explicit recovery id.
// V is either 0 or 1 (pre-EIP-155 convention); callers should treat it as
// the recovery id rather than an EIP-155-style chain-adjusted v value.
type Signature struct {
	R [32]byte
	S [32]byte
	V byte
}

// IsZero reports whether the signature has never been populated.
func (s Signature) IsZero() bool {
	return s.R == [32]byte{} && s.S == [32]byte{} && s.V == 0
}

// TxType discriminates the transaction variants carried on-chain.
type TxType uint8

const (
	TxTypeDynamic TxType = iota
	TxTypeWithdrawal
)

func (t TxType) String() string {
	switch t {
	case TxTypeDynamic:
		return "dynamic"
	case TxTypeWithdrawal:
		return "withdrawal"
	default:
		return "unknown"
	}
}

// DynamicTxData is the EIP-1559-shaped transaction variant.
type DynamicTxData struct {
	ChainID              *big.Int
	Nonce                uint64
	MaxPriorityFeePerGas *big.Int
	MaxFeePerGas         *big.Int
	GasLimit             uint64
	To                   *Address // nil for contract creation
	Value                *big.Int
	Data                 []byte
	AccessList           AccessList
}

// WithdrawalTxData commits a future L1 exit.
type WithdrawalTxData struct {
	Nonce     uint64
	Recipient Address // L1 recipient
	Value     *big.Int
}

// Transaction is exactly one of Dynamic or Withdrawal, carrying a signature
// over its canonical encoding. Exactly one of Dynamic/Withdrawal is non-nil,
// matching the variant named by Type.
type Transaction struct {
	Type       TxType
	Dynamic    *DynamicTxData
	Withdrawal *WithdrawalTxData
	Signature  Signature
}

// NewDynamicTransaction returns an unsigned Dynamic transaction.
func NewDynamicTransaction(data DynamicTxData) *Transaction {
	return &Transaction{Type: TxTypeDynamic, Dynamic: &data}
}

// NewWithdrawalTransaction returns an unsigned Withdrawal transaction.
func NewWithdrawalTransaction(data WithdrawalTxData) *Transaction {
	return &Transaction{Type: TxTypeWithdrawal, Withdrawal: &data}
}

// IsWithdrawal reports whether tx is a Withdrawal-variant transaction.
func (tx *Transaction) IsWithdrawal() bool {
	return tx.Type == TxTypeWithdrawal
}

// BlockHeader is the signable summary of a sealed block.
type BlockHeader struct {
	Sequencer        Address
	Number           uint64
	Timestamp        uint64
	ParentDigest     *Hash // nil iff Number == 0
	WithdrawalsRoot  Hash
	TransactionsRoot Hash
}

// SignedBlockHeader pairs a header with the sequencer's signature over its
// digest.
type SignedBlockHeader struct {
	Header    BlockHeader
	Signature Signature
}

// Block is a signed header plus the ordered transactions it commits to.
type Block struct {
	SignedHeader SignedBlockHeader
	Transactions []*Transaction
}

// Number is a convenience accessor mirroring the header field.
func (b *Block) Number() uint64 { return b.SignedHeader.Header.Number }
