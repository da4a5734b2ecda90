package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
)

// AddKnownPeer provides the ability to add a new peer.
func (s *State) AddKnownPeer(peer peer.Peer) bool {
	return s.knownPeers.Add(peer)
}

// RemoveKnownPeer provides the ability to remove a peer.
func (s *State) RemoveKnownPeer(peer peer.Peer) {
	s.knownPeers.Remove(peer)
}

// UpsertMempool adds a transaction retrieved from a peer's pool.
func (s *State) UpsertMempool(tx database.SignedTx) error {
	if err := s.validateTransaction(tx); err != nil {
		return err
	}

	s.mempool.Upsert(tx)

	return nil
}
