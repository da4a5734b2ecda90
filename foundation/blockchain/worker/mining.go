package worker

import (
	"context"
	"errors"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/state"
)

// miningOperations runs one mining round per start signal until shutdown.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for {
		select {
		case <-w.startMining:
			if !w.isShutdown() {
				w.runMiningOperation()
			}
		case <-w.shut:
			w.evHandler("worker: miningOperations: received shut signal")
			return
		}
	}
}

// runMiningOperation mines one block out of the pending pool. A block
// arriving from a peer cancels the round, and the round then holds until
// that block is in the ledger so the next round builds on top of it.
func (w *Worker) runMiningOperation() {
	if !w.state.IsMiningAllowed() {
		w.evHandler("worker: runMiningOperation: skipped: resync in progress")
		return
	}

	pending := w.state.QueryMempoolLength()
	if pending == 0 {
		w.evHandler("worker: runMiningOperation: skipped: pool is empty")
		return
	}

	w.evHandler("worker: runMiningOperation: round started: pending[%d]", pending)
	defer w.signalNextRound()

	// A cancel left over from a block that arrived between rounds does not
	// apply to this round.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: drained stale cancel")
	default:
	}

	ctx, cancel := context.WithCancel(context.Background())
	release := w.watchCancel(ctx, cancel)

	start := time.Now()
	block, err := w.state.MineNewBlock(ctx)
	duration := time.Since(start)

	cancel()
	release()

	if err != nil {
		w.reportFailure(ctx, err, pending)
		return
	}

	w.reportBlock(block, pending, duration)

	if err := w.state.NetSendBlockToPeers(block); err != nil {
		w.evHandler("worker: runMiningOperation: propose: WARNING: %s", err)
	}
}

// watchCancel cancels the round when a cancel request arrives. The returned
// function blocks until the watcher is gone and, when a request arrived,
// until the requester is done with the ledger. The context must be
// cancelled before calling it.
func (w *Worker) watchCancel(ctx context.Context, cancel context.CancelFunc) (release func()) {
	requested := make(chan chan struct{}, 1)

	go func() {
		select {
		case wait := <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: CANCEL: requested")
			cancel()
			requested <- wait
		case <-ctx.Done():
			requested <- nil
		}
	}()

	return func() {
		if wait := <-requested; wait != nil {
			w.evHandler("worker: runMiningOperation: CANCEL: waiting for the ledger")
			<-wait
			w.evHandler("worker: runMiningOperation: CANCEL: released")
		}
	}
}

// reportFailure records why a round produced no block.
func (w *Worker) reportFailure(ctx context.Context, err error, pending int) {
	switch {
	case errors.Is(err, state.ErrNoTransactions):
		w.evHandler("worker: runMiningOperation: no block: all %d pending transactions evicted", pending)
	case ctx.Err() != nil && errors.Is(err, context.Canceled):
		w.evHandler("worker: runMiningOperation: no block: cancelled")
	default:
		w.evHandler("worker: runMiningOperation: no block: ERROR: %s", err)
	}
}

// reportBlock records what the mined block holds. Transactions picked from
// the pool but missing from the block were evicted as invalid. A block
// without a reward means the beneficiary's account is not in the ledger yet.
func (w *Worker) reportBlock(block database.Block, pending int, duration time.Duration) {
	var included int
	var rewarded bool
	for _, tx := range block.TransactionSeries {
		if tx.Type() == database.TxMiningReward {
			rewarded = true
			continue
		}
		included++
	}

	w.evHandler("worker: runMiningOperation: mined: blk[%d]: difficulty[%d]: txs[%d]: duration[%v]", block.Header.Number, block.Header.Difficulty, included, duration)

	if evicted := pending - included - w.state.QueryMempoolLength(); evicted > 0 {
		w.evHandler("worker: runMiningOperation: mined: blk[%d]: evicted[%d]", block.Header.Number, evicted)
	}

	if !rewarded {
		w.evHandler("worker: runMiningOperation: mined: blk[%d]: no reward: beneficiary account not created yet", block.Header.Number)
	}
}

// signalNextRound starts another round while transactions remain, such as
// ones submitted during this round.
func (w *Worker) signalNextRound() {
	if w.isShutdown() {
		return
	}

	if length := w.state.QueryMempoolLength(); length > 0 {
		w.evHandler("worker: runMiningOperation: signal next round: pending[%d]", length)
		w.SignalStartMining()
	}
}
