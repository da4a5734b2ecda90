package state

import (
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
)

// ErrRewardSubmission is returned when a mining reward is submitted as a
// pending transaction. Only a miner adds a reward, inside its own block.
var ErrRewardSubmission = errors.New("mining reward transactions can't be submitted")

// =============================================================================

// SubmitWalletTransaction accepts a transaction from a wallet for inclusion.
// The transaction is shared with the known peers and mining is signaled.
func (s *State) SubmitWalletTransaction(tx database.SignedTx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	s.evHandler("state: SubmitWalletTransaction: tx[%s]: pool[%d]", tx, s.mempool.Upsert(tx))

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}

// SubmitNodeTransaction accepts a transaction shared by another node. A
// transaction already in the pool is not processed again.
func (s *State) SubmitNodeTransaction(tx database.SignedTx) error {
	if s.mempool.Exists(tx.ID) {
		return nil
	}

	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	s.evHandler("state: SubmitNodeTransaction: tx[%s]: pool[%d]", tx, s.mempool.Upsert(tx))

	s.Worker.SignalStartMining()

	return nil
}

// =============================================================================

// validateTransaction performs the admission checks for the pool. These
// checks don't need the world state, a transaction that fails against the
// world state is evicted when a block is being mined.
func (s *State) validateTransaction(tx database.SignedTx) error {
	if tx.Type() == database.TxMiningReward {
		return fmt.Errorf("%w: transaction id %s", ErrRewardSubmission, tx.ID)
	}

	if err := tx.Validate(); err != nil {
		return err
	}

	return nil
}
