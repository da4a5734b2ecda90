package database

import (
	"crypto/ecdsa"
	"encoding/json"
	"strings"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/vm"
)

// accountFields is the set of field names an account serializes to. It is
// the schema a CREATE_ACCOUNT payload is checked against.
var accountFields = []string{"address", "balance", "code", "codeHash"}

// Account represents information stored in the database for an individual
// account. Accounts holding code are contract accounts and are keyed in
// state by their code hash instead of their address.
type Account struct {
	Address  string   `json:"address"`
	Balance  uint64   `json:"balance"`
	Code     vm.Code  `json:"code"`
	CodeHash CodeHash `json:"codeHash"`
}

// NewAccount constructs a new account value for use. A code hash is
// generated when the account holds code.
func NewAccount(address string, balance uint64, code vm.Code) Account {
	account := Account{
		Address: address,
		Balance: balance,
		Code:    code,
	}

	if len(code) > 0 {
		account.CodeHash = CodeHash(signature.Hash(struct {
			Address string  `json:"address"`
			Code    vm.Code `json:"code"`
		}{address, code}))
	}

	return account
}

// NewAccountFromKey constructs an account owned by the private key.
func NewAccountFromKey(privateKey *ecdsa.PrivateKey, balance uint64, code vm.Code) Account {
	return NewAccount(signature.PublicKeyToAddress(privateKey.PublicKey), balance, code)
}

// IsContract reports whether the account holds code.
func (a Account) IsContract() bool {
	return a.CodeHash != ""
}

// Key returns the key the account is stored under in the world state.
func (a Account) Key() string {
	if a.IsContract() {
		return string(a.CodeHash)
	}
	return a.Address
}

// =============================================================================

// CodeHash is the content hash identifying a contract account. The zero
// value represents a plain account and is serialized as null.
type CodeHash string

// MarshalJSON implements the json.Marshaler interface.
func (ch CodeHash) MarshalJSON() ([]byte, error) {
	if ch == "" {
		return []byte("null"), nil
	}
	return signature.Marshal(string(ch))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (ch *CodeHash) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ch = ""
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*ch = CodeHash(s)

	return nil
}

// =============================================================================

// ToAccountKey validates the string is usable as a key into the world state,
// either an address or a code hash.
func ToAccountKey(key string) (string, error) {
	key = strings.TrimPrefix(key, "0x")

	if signature.IsAddress(key) {
		return key, nil
	}

	if len(key) == signature.HashLength && isHex(key) {
		return key, nil
	}

	return "", ErrAccountKey
}

// isHex validates whether each byte is valid hexadecimal string.
func isHex(s string) bool {
	if len(s)%2 != 0 {
		return false
	}

	for _, c := range []byte(s) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns bool of c being a valid hexadecimal.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}
