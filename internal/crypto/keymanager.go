package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// pbkdf2Iterations is the OWASP-recommended minimum for HMAC-SHA256.
	pbkdf2Iterations = 480_000
	saltLen          = 16
	aesKeyLen        = 32
	seedFileVersion  = 1
)

// encryptedSeedJSON is the on-disk format for an encrypted secret key seed.
type encryptedSeedJSON struct {
	Version    int    `json:"version"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// SeedConfig carries the information LoadSeed needs to resolve the
// sequencer's secret key seed from environment or config-file values.
type SeedConfig struct {
	// RawSeedHex is the hex-encoded secp256k1 secret scalar (with or without
	// 0x prefix). If non-empty, LoadSeed returns it directly.
	RawSeedHex string

	// EncryptedSeedPath is the path to a JSON file produced by EncryptSeed.
	EncryptedSeedPath string

	// SeedPassword decrypts the file at EncryptedSeedPath.
	SeedPassword string
}

// EncryptSeed encrypts a hex-encoded secret key seed with a password using
// PBKDF2-HMAC-SHA256 key derivation and AES-256-GCM authenticated
// encryption, returning the JSON blob suitable for writing to disk.
func EncryptSeed(seedHex string, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.New("crypto: password must not be empty")
	}

	h := strings.TrimPrefix(seedHex, "0x")
	seedBytes, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid seed hex: %w", err)
	}
	if len(seedBytes) != 32 {
		return nil, fmt.Errorf("crypto: expected 32-byte seed, got %d bytes", len(seedBytes))
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypto: generating salt: %w", err)
	}
	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: creating GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("crypto: generating nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, seedBytes, nil)

	out := encryptedSeedJSON{
		Version:    seedFileVersion,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(out, "", "  ")
}

// DecryptSeed decrypts a JSON blob produced by EncryptSeed, returning the
// hex-encoded secret key seed without a 0x prefix.
func DecryptSeed(encryptedJSON []byte, password string) (string, error) {
	if password == "" {
		return "", errors.New("crypto: password must not be empty")
	}

	var stored encryptedSeedJSON
	if err := json.Unmarshal(encryptedJSON, &stored); err != nil {
		return "", fmt.Errorf("crypto: parsing encrypted seed JSON: %w", err)
	}
	if stored.Version != seedFileVersion {
		return "", fmt.Errorf("crypto: unsupported version %d", stored.Version)
	}

	salt, err := base64.StdEncoding.DecodeString(stored.Salt)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(stored.Nonce)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(stored.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("crypto: decoding ciphertext: %w", err)
	}

	derivedKey := pbkdf2.Key([]byte(password), salt, pbkdf2Iterations, aesKeyLen, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return "", fmt.Errorf("crypto: creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("crypto: creating GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("crypto: decryption failed (wrong password?): %w", err)
	}
	return hex.EncodeToString(plaintext), nil
}

// LoadSeed resolves the sequencer's secret key seed from the given
// configuration.
//
// Resolution order:
//  1. If RawSeedHex is set, return it (stripping 0x prefix).
//  2. If EncryptedSeedPath is set, read the file and decrypt with SeedPassword.
//  3. Otherwise, generate a fresh one and return its hex encoding.
func LoadSeed(cfg SeedConfig) (string, error) {
	if cfg.RawSeedHex != "" {
		h := strings.TrimPrefix(cfg.RawSeedHex, "0x")
		if _, err := hex.DecodeString(h); err != nil {
			return "", fmt.Errorf("crypto: RawSeedHex is not valid hex: %w", err)
		}
		return h, nil
	}

	if cfg.EncryptedSeedPath != "" {
		data, err := os.ReadFile(cfg.EncryptedSeedPath)
		if err != nil {
			return "", fmt.Errorf("crypto: reading encrypted seed file: %w", err)
		}
		return DecryptSeed(data, cfg.SeedPassword)
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return "", fmt.Errorf("crypto: generating fallback seed: %w", err)
	}
	return kp.SeedHex(), nil
}
