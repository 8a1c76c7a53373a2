// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/toychain/utxonode/app/services/node/handlers/v1/private"
	"github.com/toychain/utxonode/app/services/node/handlers/v1/public"
	"github.com/toychain/utxonode/foundation/blockchain/jobs"
	"github.com/toychain/utxonode/foundation/blockchain/state"
	"github.com/toychain/utxonode/foundation/events"
	"github.com/toychain/utxonode/foundation/nameservice"
	"github.com/toychain/utxonode/foundation/web"
	"go.uber.org/zap"
)

const (
	version = "v1"
	p2p     = "p2p"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	Jobs  *jobs.Manager
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		Jobs:  cfg.Jobs,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chain", pbl.Chain)
	app.Handle(http.MethodGet, version, "/chain/validate", pbl.ValidateChain)
	app.Handle(http.MethodGet, version, "/balances", pbl.Balances)
	app.Handle(http.MethodGet, version, "/balances/:address", pbl.Balances)
	app.Handle(http.MethodGet, version, "/utxos", pbl.UTXOs)
	app.Handle(http.MethodGet, version, "/utxos/:address", pbl.UTXOs)
	app.Handle(http.MethodGet, version, "/tx/pending", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/tx/transfer", pbl.SubmitTransfer)
	app.Handle(http.MethodGet, version, "/mining/jobs", pbl.ListJobs)
	app.Handle(http.MethodPost, version, "/mining/jobs", pbl.StartJob)
	app.Handle(http.MethodGet, version, "/mining/jobs/:id", pbl.JobStatus)
	app.Handle(http.MethodDelete, version, "/mining/jobs/:id", pbl.CancelJob)
}

// PrivateRoutes binds all the peer to peer routes.
func PrivateRoutes(app *web.App, cfg Config) {
	prv := private.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
	}

	app.Handle(http.MethodPost, p2p, "/tx", prv.SubmitNodeTransaction)
	app.Handle(http.MethodPost, p2p, "/block", prv.ProposeBlock)
	app.Handle(http.MethodGet, p2p, "/status", prv.Status)
	app.Handle(http.MethodGet, p2p, "/blocks/:from", prv.BlocksFrom)
	app.Handle(http.MethodGet, p2p, "/tx/pending", prv.Mempool)
}
