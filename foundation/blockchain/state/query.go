package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// QueryLatest represents to query the latest block in the chain.
const QueryLatest = ^uint64(0) >> 1

// =============================================================================

// QueryAccount returns a copy of the account stored under the key. The key
// is an address or the code hash of a contract.
func (s *State) QueryAccount(key string) (database.Account, error) {
	key, err := database.ToAccountKey(key)
	if err != nil {
		return database.Account{}, err
	}

	account, exists, err := s.ledger.GetAccount(key)
	if err != nil {
		return database.Account{}, err
	}

	if !exists {
		return database.Account{}, database.ErrAccountNotFound
	}

	return account, nil
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlocksByNumber returns the set of blocks based on block numbers.
func (s *State) QueryBlocksByNumber(from uint64, to uint64) []database.Block {
	latest := s.ledger.LatestBlock().Header.Number

	if from == QueryLatest {
		from = latest
		to = from
	}
	if to == QueryLatest {
		to = latest
	}

	if from > to {
		return nil
	}

	return s.ledger.Blocks(from, to)
}

// QueryBlocksByAccount returns the set of blocks holding a transaction that
// involves the account key. If the key is empty, all blocks are returned.
func (s *State) QueryBlocksByAccount(key string) []database.Block {
	var out []database.Block

	for _, block := range s.ledger.Chain() {
		if key == "" {
			out = append(out, block)
			continue
		}

		for _, tx := range block.TransactionSeries {
			if tx.From == key || tx.To == key || involvesAccount(tx, key) {
				out = append(out, block)
				break
			}
		}
	}

	return out
}

// involvesAccount reports whether the transaction creates the account
// stored under the key.
func involvesAccount(tx database.SignedTx, key string) bool {
	if tx.Type() != database.TxCreateAccount {
		return false
	}

	account, err := tx.Account()
	if err != nil {
		return false
	}

	return account.Key() == key
}
