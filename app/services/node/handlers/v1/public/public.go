// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"
	"github.com/toychain/utxonode/business/sys/validate"
	"github.com/toychain/utxonode/business/web/errs"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/jobs"
	"github.com/toychain/utxonode/foundation/blockchain/state"
	"github.com/toychain/utxonode/foundation/events"
	"github.com/toychain/utxonode/foundation/nameservice"
	"github.com/toychain/utxonode/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	Jobs  *jobs.Manager
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransfer builds a transaction from the sender's unspent outputs and
// adds it to the mempool.
func (h Handlers) SubmitTransfer(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req transferRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	h.Log.Infow("transfer", "traceid", web.GetTraceID(ctx), "from", req.From, "to", req.To, "amount", req.Amount)

	tran, err := h.State.SubmitTransfer(state.Transfer{
		From:      req.From,
		To:        req.To,
		Amount:    req.Amount,
		Signature: req.Signature,
	})
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, h.toTx(tran), http.StatusCreated)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	pending := h.State.RetrieveMempool()

	trans := make([]tx, len(pending))
	for i, tran := range pending {
		trans[i] = h.toTx(tran)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.RetrieveGenesis(), http.StatusOK)
}

// Chain returns every block of the chain.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.State.RetrieveChain()

	blocks := make([]block, len(chain))
	for i, blk := range chain {
		trans := make([]tx, len(blk.Transactions()))
		for j, tran := range blk.Transactions() {
			trans[j] = h.toTx(tran)
		}

		blocks[i] = block{
			Index:        blk.Index(),
			Timestamp:    blk.Timestamp(),
			PreviousHash: blk.PrevHash(),
			Hash:         blk.Hash(),
			Nonce:        blk.Nonce(),
			Difficulty:   blk.Difficulty(),
			Transactions: trans,
		}
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// ValidateChain checks every link and hash of the chain and replays the
// transactions.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	report := h.State.ValidateChain()

	resp := chainReport{
		Valid:  report.Valid,
		Reason: report.Reason(),
		Report: report,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balances returns the current balances for all addresses or the one
// specified.
func (h Handlers) Balances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	address := web.Param(r, "address")

	var bals map[string]uint64
	switch address {
	case "":
		bals = h.State.QueryBalances()

	default:
		bals = map[string]uint64{address: h.State.QueryBalance(address)}
	}

	list := make([]balance, 0, len(bals))
	for addr, value := range bals {
		list = append(list, balance{
			Address: addr,
			Name:    h.NS.Lookup(addr),
			Balance: value,
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Address < list[j].Address
	})

	resp := balances{
		LatestBlock: h.State.RetrieveLatestBlock().Hash(),
		Uncommitted: len(h.State.RetrieveMempool()),
		Total:       h.State.QueryTotalValue(),
		Balances:    list,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// UTXOs returns the unspent outputs for all addresses or the one specified.
func (h Handlers) UTXOs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	entries := h.State.QueryUTXOs(web.Param(r, "address"))

	list := make([]utxo, len(entries))
	for i, e := range entries {
		list[i] = utxo{
			TxID:    e.TxID,
			Index:   e.Index,
			Address: e.Output.Address,
			Name:    h.NS.Lookup(e.Output.Address),
			Amount:  e.Output.Amount,
		}
	}

	return web.Respond(ctx, w, list, http.StatusOK)
}

// StartJob queues a mining job for the miner address and returns its id
// without waiting for the block.
func (h Handlers) StartJob(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req jobRequest
	if err := web.Decode(r, &req); err != nil {
		return errs.NewTrusted(fmt.Errorf("unable to decode payload: %w", err), http.StatusBadRequest)
	}

	if err := validate.Check(req); err != nil {
		return err
	}

	id, err := h.Jobs.Start(req.Miner)
	if err != nil {
		return err
	}

	h.Log.Infow("mining job", "traceid", web.GetTraceID(ctx), "job", id, "miner", req.Miner)

	return web.Respond(ctx, w, jobResponse{JobID: id}, http.StatusAccepted)
}

// JobStatus returns the current state of the job.
func (h Handlers) JobStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status, err := h.Jobs.Status(web.Param(r, "id"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// CancelJob stops the job.
func (h Handlers) CancelJob(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id := web.Param(r, "id")
	if err := h.Jobs.Cancel(id); err != nil {
		return err
	}

	status, err := h.Jobs.Status(id)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// ListJobs returns every job in the order they were started.
func (h Handlers) ListJobs(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Jobs.List(), http.StatusOK)
}

// =============================================================================

func (h Handlers) toTx(tran database.Tx) tx {
	ins := make([]input, len(tran.Inputs()))
	for i, in := range tran.Inputs() {
		ins[i] = input{
			TxID:        in.TxID,
			OutputIndex: in.OutputIndex,
			Signature:   in.Signature,
		}
	}

	outs := make([]output, len(tran.Outputs()))
	for i, out := range tran.Outputs() {
		outs[i] = output{
			Address: out.Address,
			Name:    h.NS.Lookup(out.Address),
			Amount:  out.Amount,
		}
	}

	return tx{
		ID:      tran.ID(),
		Inputs:  ins,
		Outputs: outs,
		Total:   tran.TotalOut(),
	}
}
