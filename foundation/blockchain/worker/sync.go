package worker

// Sync updates the peer list and mempool, then replaces the local chain with
// the longest valid chain found among the peers.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, pr := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(pr)
		if err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", pr.Host, err)
			continue
		}

		// Add new peers to this nodes list.
		w.addNewPeers(peerStatus.KnownPeers)

		// Retrieve the mempool from the peer.
		pool, err := w.state.NetRequestPeerMempool(pr)
		if err != nil {
			w.evHandler("worker: sync: retrievePeerMempool: %s: ERROR: %s", pr.Host, err)
		}
		for _, tx := range pool {
			w.evHandler("worker: sync: retrievePeerMempool: %s: Add Tx: %s", pr.Host, tx)
			if err := w.state.UpsertMempool(tx); err != nil {
				w.evHandler("worker: sync: retrievePeerMempool: %s: WARNING: %s", pr.Host, err)
			}
		}

		// If this peer has a longer chain, try to replace ours with it.
		if peerStatus.ChainLength <= w.state.RetrieveChainLength() {
			continue
		}

		w.evHandler("worker: sync: retrievePeerChain: %s: length[%d]", pr.Host, peerStatus.ChainLength)

		chain, err := w.state.NetRequestPeerChain(pr)
		if err != nil {
			w.evHandler("worker: sync: retrievePeerChain: %s: ERROR: %s", pr.Host, err)
			continue
		}

		if err := w.state.ReplaceChain(chain); err != nil {
			w.evHandler("worker: sync: replaceChain: %s: ERROR: %s", pr.Host, err)
		}
	}
}
