// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/toychain/utxonode/business/sys/validate"
	"github.com/toychain/utxonode/business/web/errs"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/state"
	"github.com/toychain/utxonode/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of peer endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
}

// SubmitNodeTransaction adds a transaction shared by a peer to the mempool.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var wtx database.WireTx
	if err := web.Decode(r, &wtx); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(wtx); err != nil {
		return err
	}

	h.Log.Infow("add node tran", "traceid", web.GetTraceID(ctx), "tx", wtx.ID, "inputs", len(wtx.Inputs), "outputs", len(wtx.Outputs))
	if err := h.State.UpsertNodeTransaction(wtx); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var wb database.WireBlock
	if err := web.Decode(r, &wb); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(wb); err != nil {
		return err
	}

	h.Log.Infow("propose block", "traceid", web.GetTraceID(ctx), "index", wb.Index, "hash", wb.Hash)
	if err := h.State.ProcessProposedBlock(wb); err != nil {
		return err
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "accepted",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveStatus(), http.StatusOK)
}

// BlocksFrom returns the blocks from the specified index to the head.
func (h Handlers) BlocksFrom(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	from, err := strconv.ParseUint(web.Param(r, "from"), 10, 64)
	if err != nil {
		return errs.NewTrusted(fmt.Errorf("invalid from index: %w", err), http.StatusBadRequest)
	}

	blocks := h.State.RetrieveBlocksFrom(from)
	if len(blocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveMempool(), http.StatusOK)
}
