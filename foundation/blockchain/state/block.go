package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
)

// Set of errors returned by block processing.
var (
	ErrNoTransactions = errors.New("no transactions in mempool")
	ErrChainForked    = errors.New("blockchain forked, start resync")
)

// =============================================================================

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.evHandler("state: MineNewBlock: MINING: check mempool count")

	// Are there enough transactions in the pool.
	if s.mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	parent, scratch := s.ledger.Snapshot()
	stateRoot := scratch.StateRoot()

	s.evHandler("state: MineNewBlock: MINING: select transactions: stateRoot[%s]", stateRoot)

	series := s.selectTransactions(scratch)
	if len(series) == 0 {
		return database.Block{}, ErrNoTransactions
	}

	// The reward can only be paid once the beneficiary's account exists,
	// which may be thanks to a transaction earlier in this same series.
	if _, exists, _ := scratch.GetAccount(s.beneficiary); exists {
		series = append(series, database.NewMiningRewardTx(s.beneficiary, s.genesis.MiningReward))
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: txs[%d]", len(series))

	// Attempt to create a new block by solving the POW puzzle. This can be cancelled.
	block, err := database.POW(ctx, database.POWArgs{
		Parent:            parent,
		Beneficiary:       s.beneficiary,
		TransactionSeries: series,
		StateRoot:         stateRoot,
		MineRate:          s.genesis.MineRate(),
		EvHandler:         s.evHandler,
	})
	if err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: add block to the ledger")

	if err := s.admitBlock(block); err != nil {
		return database.Block{}, err
	}

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (s *State) ProcessProposedBlock(block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: parentBlk[%s]: newBlk[%s]: numTxs[%d]", block.Header.ParentHash, block.Hash(), len(block.TransactionSeries))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", block.Hash())

	// A block that skips ahead means the peer has a chain this node does not
	// know about. Only a full chain replacement can fix that.
	latest := s.RetrieveLatestBlock()
	if block.Header.Number >= latest.Header.Number+2 {
		return fmt.Errorf("%w: latest[%d]: proposed[%d]", ErrChainForked, latest.Header.Number, block.Header.Number)
	}

	if err := s.admitBlock(block); err != nil {
		return err
	}

	// If the runMiningOperation function is being executed it needs to stop
	// immediately. The G executing runMiningOperation will not return from the
	// function until done is called. That allows this function to complete
	// its state changes before a new mining operation takes place.
	done := s.Worker.SignalCancelMining()
	defer func() {
		s.evHandler("state: ProcessProposedBlock: signal runMiningOperation to terminate")
		done()
	}()

	return nil
}

// =============================================================================

// selectTransactions runs the pending transactions in pool order against the
// scratch world state. A transaction that would fail is evicted from the
// pool. Reward transactions are never taken from the pool, the miner adds
// its own.
func (s *State) selectTransactions(scratch *database.Database) []database.SignedTx {
	var series []database.SignedTx

	for _, tx := range s.mempool.PickBest(-1) {
		if tx.Type() == database.TxMiningReward {
			s.evHandler("state: selectTransactions: evict: tx[%s]: reward in pool", tx)
			s.mempool.Delete(tx.ID)
			continue
		}

		if err := database.ValidateTransaction(tx, scratch, s.genesis.MiningReward); err != nil {
			s.evHandler("state: selectTransactions: evict: tx[%s]: %s", tx, err)
			s.mempool.Delete(tx.ID)
			continue
		}

		if err := database.RunTransaction(tx, scratch); err != nil {
			s.evHandler("state: selectTransactions: evict: tx[%s]: %s", tx, err)
			s.mempool.Delete(tx.ID)
			continue
		}

		series = append(series, tx)
	}

	return series
}

// admitBlock adds the block to the ledger. The ledger validates the block
// and its transactions before anything changes and prunes the pool.
func (s *State) admitBlock(block database.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.evHandler("state: admitBlock: blk[%d]: add to the ledger", block.Header.Number)

	if err := s.ledger.AddBlock(block, s.mempool); err != nil {
		return err
	}

	// Send an event about this new block.
	s.blockEvent(block)

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockHeaderJSON, err := signature.Marshal(block.Header)
	if err != nil {
		blockHeaderJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	blockTxsJSON, err := signature.Marshal(block.TransactionSeries)
	if err != nil {
		blockTxsJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"header":%s,"txs":%s}`, block.Hash(), string(blockHeaderJSON), string(blockTxsJSON))
}
