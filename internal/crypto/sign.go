package crypto

import (
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/sergerad/nolemma/internal/domain"
)

// Keccak256 hashes the concatenation of the given byte slices. Every digest
// used for signing or identity in this package flows through here.
func Keccak256(parts ...[]byte) domain.Hash {
	return domain.Hash(ethcrypto.Keccak256Hash(parts...))
}

// Sign produces a low-s-normalized secp256k1 signature with recovery id over
// a 32-byte digest. It never signs a message directly — callers must hash
// first (see package encoding).
func Sign(kp *Keypair, digest domain.Hash) (domain.Signature, error) {
	raw, err := ethcrypto.Sign(digest[:], kp.Secret)
	if err != nil {
		return domain.Signature{}, fmt.Errorf("crypto: sign: %w", err)
	}
	var sig domain.Signature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]
	return sig, nil
}

// Recover returns the address that produced sig over digest.
// It returns domain.ErrInvalidSignature when r/s are malformed or no point
// recovers.
func Recover(sig domain.Signature, digest domain.Hash) (domain.Address, error) {
	if sig.V > 1 {
		return domain.Address{}, fmt.Errorf("crypto: recover: %w: v out of range", domain.ErrInvalidSignature)
	}
	raw := make([]byte, 65)
	copy(raw[0:32], sig.R[:])
	copy(raw[32:64], sig.S[:])
	raw[64] = sig.V

	pub, err := ethcrypto.SigToPub(digest[:], raw)
	if err != nil {
		return domain.Address{}, fmt.Errorf("crypto: recover: %w: %v", domain.ErrInvalidSignature, err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether sig over digest recovers to addr.
func Verify(addr domain.Address, sig domain.Signature, digest domain.Hash) bool {
	recovered, err := Recover(sig, digest)
	if err != nil {
		return false
	}
	return recovered == addr
}

// DeriveAddress computes the Ethereum-style address of a secp256k1 keypair.
func DeriveAddress(kp *Keypair) domain.Address {
	return kp.Address
}
