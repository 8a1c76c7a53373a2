package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/peer"
)

const baseURL = "http://%s/p2p"

// NetSendTxToPeers shares a new transaction with the known peers. Each send
// is independent and a failure is logged and dropped.
func (s *State) NetSendTxToPeers(tx database.Tx) {
	s.evHandler("state: NetSendTxToPeers: started: %s", tx)
	defer s.evHandler("state: NetSendTxToPeers: completed: %s", tx)

	wtx := database.NewWireTx(tx)
	for _, pr := range s.RetrieveKnownPeers() {
		url := fmt.Sprintf("%s/tx", fmt.Sprintf(baseURL, pr.Host))
		if err := s.client.send(http.MethodPost, url, wtx, nil); err != nil {
			s.evHandler("state: NetSendTxToPeers: peer[%s]: WARNING: %s", pr, err)
			continue
		}
		s.evHandler("state: NetSendTxToPeers: sent to peer[%s]", pr)
	}
}

// NetSendBlockToPeers takes the new mined block and sends it to all know
// peers. Each send is independent and a failure is logged and dropped.
func (s *State) NetSendBlockToPeers(block database.Block) {
	s.evHandler("state: NetSendBlockToPeers: started: blk[%d]", block.Index())
	defer s.evHandler("state: NetSendBlockToPeers: completed: blk[%d]", block.Index())

	wb := database.NewWireBlock(block)
	for _, pr := range s.RetrieveKnownPeers() {
		url := fmt.Sprintf("%s/block", fmt.Sprintf(baseURL, pr.Host))
		if err := s.client.send(http.MethodPost, url, wb, nil); err != nil {
			s.evHandler("state: NetSendBlockToPeers: peer[%s]: WARNING: %s", pr, err)
			continue
		}
		s.evHandler("state: NetSendBlockToPeers: sent to peer[%s]", pr)
	}
}

// NetRequestPeerStatus asks the peer for the state of its chain.
func (s *State) NetRequestPeerStatus(pr peer.Peer) (peer.PeerStatus, error) {
	s.evHandler("state: NetRequestPeerStatus: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerStatus: completed: %s", pr)

	url := fmt.Sprintf("%s/status", fmt.Sprintf(baseURL, pr.Host))

	var ps peer.PeerStatus
	if err := s.client.send(http.MethodGet, url, nil, &ps); err != nil {
		return peer.PeerStatus{}, err
	}

	s.evHandler("state: NetRequestPeerStatus: peer-node[%s]: latest-blkidx[%d]: peer-list[%s]", pr, ps.LatestBlockIndex, ps.KnownPeers)

	return ps, nil
}

// NetRequestPeerBlocks queries the specified node asking for blocks this
// node does not have and applies them in order. It stops at the first block
// that doesn't extend the local head.
func (s *State) NetRequestPeerBlocks(pr peer.Peer) (int, error) {
	s.evHandler("state: NetRequestPeerBlocks: started: %s", pr)
	defer s.evHandler("state: NetRequestPeerBlocks: completed: %s", pr)

	from := s.RetrieveLatestBlock().Index() + 1
	url := fmt.Sprintf("%s/blocks/%d", fmt.Sprintf(baseURL, pr.Host), from)

	var blocks []database.WireBlock
	if err := s.client.send(http.MethodGet, url, nil, &blocks); err != nil {
		return 0, err
	}

	s.evHandler("state: NetRequestPeerBlocks: found blocks[%d]", len(blocks))

	for i, wb := range blocks {
		if err := s.ProcessProposedBlock(wb); err != nil {
			return i, err
		}
	}

	return len(blocks), nil
}

// =============================================================================

// peerClient sends requests to peers with a bounded timeout.
type peerClient struct {
	http *http.Client
}

func newPeerClient(timeout time.Duration) peerClient {
	return peerClient{
		http: &http.Client{Timeout: timeout},
	}
}

// send is a helper function to send an HTTP request to a node.
func (pc peerClient) send(method string, url string, dataSend any, dataRecv any) error {
	var body io.Reader
	if dataSend != nil {
		data, err := json.Marshal(dataSend)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := pc.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", err, ErrPeerUnreachable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		msg, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return err
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	if dataRecv != nil {
		if err := json.NewDecoder(resp.Body).Decode(dataRecv); err != nil {
			return err
		}
	}

	return nil
}
