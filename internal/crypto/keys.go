// Package crypto implements the sequencer's cryptographic primitives:
// Keccak-256 hashing, secp256k1 signing/recovery, address derivation, and
// at-rest protection for the sequencer's secret key seed.
package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/sergerad/nolemma/internal/domain"
)

// Keypair is the sequencer's signing identity: a secret scalar plus its
// derived public key and address. Exactly one is held per process, generated
// at startup.
type Keypair struct {
	Secret  *ecdsa.PrivateKey
	Public  *ecdsa.PublicKey
	Address domain.Address
}

// GenerateKeypair creates a fresh secp256k1 keypair using the system CSPRNG.
func GenerateKeypair() (*Keypair, error) {
	pk, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return keypairFromECDSA(pk), nil
}

// KeypairFromHex constructs a Keypair from a hex-encoded secp256k1 secret
// scalar (with or without a 0x prefix).
func KeypairFromHex(seedHex string) (*Keypair, error) {
	h := strings.TrimPrefix(seedHex, "0x")
	pk, err := ethcrypto.HexToECDSA(h)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid secret seed: %w", err)
	}
	return keypairFromECDSA(pk), nil
}

func keypairFromECDSA(pk *ecdsa.PrivateKey) *Keypair {
	return &Keypair{
		Secret:  pk,
		Public:  &pk.PublicKey,
		Address: ethcrypto.PubkeyToAddress(pk.PublicKey),
	}
}

// SeedHex returns the hex-encoded secret scalar, without a 0x prefix. LoadSeed
// uses it to return the seed of a freshly generated keypair.
func (k *Keypair) SeedHex() string {
	return hex.EncodeToString(ethcrypto.FromECDSA(k.Secret))
}
