package state

import (
	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveBeneficiary returns the account receiving this node's rewards.
func (s *State) RetrieveBeneficiary() string {
	return s.beneficiary
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	return s.ledger.LatestBlock()
}

// RetrieveChain returns a copy of the full chain, genesis included.
func (s *State) RetrieveChain() []database.Block {
	return s.ledger.Chain()
}

// RetrieveChainLength returns the number of blocks in the chain, genesis
// included.
func (s *State) RetrieveChainLength() int {
	return s.ledger.Length()
}

// RetrieveStateRoot returns the root hash of the current world state.
func (s *State) RetrieveStateRoot() string {
	return s.ledger.StateRoot()
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.SignedTx {
	return s.mempool.TransactionSeries()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status of this node as shared with peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	chain := s.ledger.Chain()
	latest := chain[len(chain)-1]

	return peer.PeerStatus{
		LatestBlockHash:   latest.Hash(),
		LatestBlockNumber: latest.Header.Number,
		ChainLength:       len(chain),
		KnownPeers:        s.RetrieveKnownPeers(),
	}
}
