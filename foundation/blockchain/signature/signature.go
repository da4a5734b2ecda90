// Package signature provides helper functions for handling the blockchain
// hashing, identity and signature needs.
package signature

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashLength is the number of hex characters in every hash produced.
const HashLength = 64

// =============================================================================

// Hash returns a unique string for the value. The value is serialized to JSON,
// the characters of the serialized form are sorted and the result is hashed
// with Keccak-256. Sorting the characters makes the hash insensitive to the
// order of keys in the serialized form. Hash panics when the value can't be
// serialized, every hashed type in the ledger always serializes.
func Hash(value any) string {
	digest, err := stamp(value)
	if err != nil {
		panic(fmt.Sprintf("signature: hash: %v", err))
	}

	return hex.EncodeToString(digest)
}

// SortCharacters returns the characters of the data sorted in ascending order.
func SortCharacters(data []byte) string {
	runes := []rune(string(data))
	sort.Slice(runes, func(i, j int) bool {
		return runes[i] < runes[j]
	})

	return string(runes)
}

// =============================================================================

// GenerateKey creates a new secp256k1 private key from system randomness.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return crypto.GenerateKey()
}

// PublicKeyToAddress converts the public key to the hex encoding of its
// uncompressed form, which is the address of the account.
func PublicKeyToAddress(pk ecdsa.PublicKey) string {
	return hex.EncodeToString(crypto.FromECDSAPub(&pk))
}

// IsAddress verifies whether the string is a hex-encoded uncompressed
// public key on the secp256k1 curve.
func IsAddress(address string) bool {
	if _, err := toPublicKey(address); err != nil {
		return false
	}

	return true
}

// PrivateKeyString returns the private key as a 0x prefixed hex string.
func PrivateKeyString(privateKey *ecdsa.PrivateKey) string {
	return hexutil.Encode(crypto.FromECDSA(privateKey))
}

// Sign uses the specified private key to sign the hash of the value.
func Sign(value any, privateKey *ecdsa.PrivateKey) (string, error) {
	digest, err := stamp(value)
	if err != nil {
		return "", err
	}

	// Sign the hash with the private key to produce a [R|S|V] signature.
	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", err
	}

	// Check the public key extracted from the data and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(&privateKey.PublicKey), digest, rs) {
		return "", errors.New("invalid signature")
	}

	return hex.EncodeToString(sig), nil
}

// Verify checks the signature was produced over the hash of the value by the
// private key belonging to the specified address.
func Verify(address string, value any, sig string) bool {
	publicKey, err := toPublicKey(address)
	if err != nil {
		return false
	}

	sigBytes, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil || len(sigBytes) != crypto.SignatureLength {
		return false
	}

	digest, err := stamp(value)
	if err != nil {
		return false
	}

	return crypto.VerifySignature(publicKey, digest, sigBytes[:crypto.RecoveryIDOffset])
}

// =============================================================================

// Marshal produces the canonical serialization of the value. HTML escaping is
// disabled so strings serialize the way any JSON encoder writes them. Types
// implementing json.Marshaler must use it too, the encoder keeps their
// output as written.
func Marshal(value any) ([]byte, error) {
	var b bytes.Buffer

	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(b.Bytes(), []byte("\n")), nil
}

// stamp returns the 32 byte digest that is signed for the value.
func stamp(value any) ([]byte, error) {
	data, err := Marshal(value)
	if err != nil {
		return nil, err
	}

	return crypto.Keccak256([]byte(SortCharacters(data))), nil
}

// toPublicKey decodes the address back into the uncompressed public key bytes.
func toPublicKey(address string) ([]byte, error) {
	pub, err := hex.DecodeString(strings.TrimPrefix(address, "0x"))
	if err != nil {
		return nil, err
	}

	if _, err := crypto.UnmarshalPubkey(pub); err != nil {
		return nil, err
	}

	return pub, nil
}
