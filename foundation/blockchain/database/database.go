// Package database handles the world state, the transactions that change it
// and the blocks that batch those transactions together.
package database

import (
	"maps"

	"github.com/ardanlabs/powledger/foundation/blockchain/trie"
)

// record is what is stored in the account trie: the account plus the root
// hash of its storage trie at the time the account was last written.
type record struct {
	Account
	StorageRoot string `json:"storageRoot"`
}

// =============================================================================

// Database manages the world state. It holds one trie of accounts and one
// storage trie per account key. A Database is not safe for concurrent use;
// the ledger that owns it serializes access.
type Database struct {
	accounts *trie.Trie
	storage  map[string]*trie.Trie
}

// New constructs an empty world state.
func New() *Database {
	return &Database{
		accounts: trie.New(),
		storage:  make(map[string]*trie.Trie),
	}
}

// PutAccount stores the account under the key, creating the storage trie for
// the key if one does not exist yet. The storage trie's current root hash is
// embedded into the stored record.
func (db *Database) PutAccount(key string, account Account) error {
	storage := db.StorageTrie(key)

	rec := record{
		Account:     account,
		StorageRoot: storage.RootHash(),
	}

	return db.accounts.Put(key, rec)
}

// GetAccount returns a copy of the account stored under the key and whether
// it exists.
func (db *Database) GetAccount(key string) (Account, bool, error) {
	var rec record
	found, err := db.accounts.Get(key, &rec)
	if err != nil || !found {
		return Account{}, false, err
	}

	return rec.Account, true, nil
}

// StorageRoot returns the storage root recorded with the account under the
// key. It is empty when no account exists.
func (db *Database) StorageRoot(key string) (string, error) {
	var rec record
	if _, err := db.accounts.Get(key, &rec); err != nil {
		return "", err
	}

	return rec.StorageRoot, nil
}

// StateRoot returns the root hash of the account trie.
func (db *Database) StateRoot() string {
	return db.accounts.RootHash()
}

// StorageTrie returns the storage trie for the key, creating it on first use.
func (db *Database) StorageTrie(key string) *trie.Trie {
	storage, exists := db.storage[key]
	if !exists {
		storage = trie.New()
		db.storage[key] = storage
	}

	return storage
}

// storageCopy returns a copy of the storage trie for the key without
// registering a new trie when none exists.
func (db *Database) storageCopy(key string) *trie.Trie {
	if storage, exists := db.storage[key]; exists {
		return storage.Copy()
	}
	return trie.New()
}

// Copy makes an independent copy of the world state, used to execute
// transactions that may need to be thrown away.
func (db *Database) Copy() *Database {
	storage := maps.Clone(db.storage)
	for key, tr := range storage {
		storage[key] = tr.Copy()
	}

	return &Database{
		accounts: db.accounts.Copy(),
		storage:  storage,
	}
}
