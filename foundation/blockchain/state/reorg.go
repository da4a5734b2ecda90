package state

import "github.com/ardanlabs/powledger/foundation/blockchain/database"

// Resync asks the worker to look for a longer chain among the known peers.
// No mining is allowed to take place while this process is running. New
// transactions can be placed into the mempool.
func (s *State) Resync() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.allowMining {
		s.evHandler("state: Resync: already running")
		return
	}

	// Don't allow mining to continue.
	s.allowMining = false

	// Resync the state of the blockchain.
	s.resyncWG.Add(1)
	go func() {
		s.evHandler("state: Resync: started: *****************************")
		defer func() {
			s.turnMiningOn()
			s.evHandler("state: Resync: completed: *****************************")
			s.resyncWG.Done()
		}()

		s.Worker.Sync()
	}()
}

// ReplaceChain replaces the local chain with the candidate when it is
// longer and fully valid from genesis. Mining in progress is cancelled since
// its parent block is going away.
func (s *State) ReplaceChain(candidate []database.Block) error {
	s.evHandler("state: ReplaceChain: started: candidate[%d]", len(candidate))
	defer s.evHandler("state: ReplaceChain: completed")

	done := s.Worker.SignalCancelMining()
	defer done()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ledger.ReplaceChain(candidate, s.mempool); err != nil {
		return err
	}

	latest := s.ledger.LatestBlock()
	s.evHandler(`viewer: chain: {"hash":%q,"number":%d,"length":%d}`, latest.Hash(), latest.Header.Number, len(candidate))

	return nil
}

// turnMiningOn sets the allowMining flag back to true.
func (s *State) turnMiningOn() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.allowMining = true
}
