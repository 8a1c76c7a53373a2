package worker

// Sync pulls the blocks this node is missing from every known peer that is
// ahead. Only blocks that extend the local head are applied.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	for _, peer := range w.state.RetrieveKnownPeers() {

		// Retrieve the status of this peer.
		peerStatus, err := w.state.NetRequestPeerStatus(peer)
		if err != nil {
			w.evHandler("worker: sync: queryPeerStatus: %s: ERROR: %s", peer.Host, err)
			continue
		}

		// If this peer has blocks we don't have, we need to add them.
		if peerStatus.LatestBlockIndex > w.state.RetrieveLatestBlock().Index() {
			w.evHandler("worker: sync: retrievePeerBlocks: %s: latestBlockIndex[%d]", peer.Host, peerStatus.LatestBlockIndex)

			n, err := w.state.NetRequestPeerBlocks(peer)
			if err != nil {
				w.evHandler("worker: sync: retrievePeerBlocks: %s: applied[%d]: ERROR %s", peer.Host, n, err)
				continue
			}
			w.evHandler("worker: sync: retrievePeerBlocks: %s: applied[%d]", peer.Host, n)
		}
	}
}
