package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/joho/godotenv"
	"github.com/toychain/utxonode/app/services/node/handlers"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/genesis"
	"github.com/toychain/utxonode/foundation/blockchain/jobs"
	"github.com/toychain/utxonode/foundation/blockchain/peer"
	"github.com/toychain/utxonode/foundation/blockchain/state"
	"github.com/toychain/utxonode/foundation/blockchain/storage/badgerdb"
	"github.com/toychain/utxonode/foundation/blockchain/storage/leveldb"
	"github.com/toychain/utxonode/foundation/blockchain/storage/memory"
	"github.com/toychain/utxonode/foundation/blockchain/worker"
	"github.com/toychain/utxonode/foundation/events"
	"github.com/toychain/utxonode/foundation/logger"
	"github.com/toychain/utxonode/foundation/nameservice"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("NODE")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	// Values in a .env file are loaded into the environment so they can
	// override the defaults below.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:10s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:20s"`
			DebugHost       string        `conf:"default:0.0.0.0:7080"`
			PublicHost      string        `conf:"default:0.0.0.0:8080"`
			PrivateHost     string        `conf:"default:0.0.0.0:9080"`
		}
		State struct {
			GenesisPath  string   `conf:"default:zblock/genesis.json"`
			SnapshotPath string   `conf:"default:zblock/chain.snapshot"`
			Storage      string   `conf:"default:memory,help:memory|leveldb|badger|none"`
			DataDir      string   `conf:"default:zblock/data"`
			KnownPeers   []string `conf:"default:0.0.0.0:9080;0.0.0.0:9180"`
			SyncOnStart  bool     `conf:"default:true"`
		}
		Peer struct {
			SendTimeout time.Duration `conf:"default:3s"`
		}
		Jobs struct {
			Workers    int `conf:"default:2"`
			QueueDepth int `conf:"default:10"`
		}
		NameService struct {
			Folder string `conf:"default:zblock/accounts/"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "utxo proof of work ledger node",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "NODE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Name Service Support

	// The nameservice package provides name resolution for addresses. The
	// names come from the file names in the zblock/accounts folder.
	ns, err := nameservice.New(cfg.NameService.Folder)
	if err != nil {
		return fmt.Errorf("unable to load account name service: %w", err)
	}

	for account, name := range ns.Copy() {
		log.Infow("startup", "status", "nameservice", "name", name, "account", account)
	}

	// =========================================================================
	// Blockchain Support

	gen, err := genesis.Load(cfg.State.GenesisPath)
	if err != nil {
		return fmt.Errorf("unable to load genesis: %w", err)
	}

	// The blockchain packages accept a function of this signature to allow the
	// application to log. These raw messages are also sent to any websocket
	// client that is connected into the system through the events package.
	evts := events.New()
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", "00000000-0000-0000-0000-000000000000")
		evts.Send(s)
	}

	store, err := openStorage(cfg.State.Storage, cfg.State.DataDir, ev)
	if err != nil {
		return err
	}

	// The state value represents the blockchain node and manages the blockchain
	// database and provides an API for application support.
	st, err := state.New(state.Config{
		Host:        cfg.Web.PrivateHost,
		Genesis:     gen,
		KnownPeers:  peer.NewPeerSetFromHosts(cfg.State.KnownPeers),
		Storage:     store,
		SendTimeout: cfg.Peer.SendTimeout,
		EvHandler:   ev,
	})
	if err != nil {
		return err
	}
	defer st.Shutdown()

	if err := st.LoadSnapshotFile(cfg.State.SnapshotPath); err != nil {
		return fmt.Errorf("unable to load snapshot: %w", err)
	}

	// The worker package implements peer sharing and snapshot persistence.
	// The worker will register itself with the state.
	worker.Run(st, worker.Config{
		SnapshotPath: cfg.State.SnapshotPath,
		SyncOnStart:  cfg.State.SyncOnStart,
	}, ev)

	// Mining runs in the background on a bounded pool of workers.
	mgr := jobs.New(st, jobs.Config{
		Workers:    cfg.Jobs.Workers,
		QueueDepth: cfg.Jobs.QueueDepth,
		EvHandler:  ev,
		OnMined: func(jobID string, block database.Block) {
			log.Infow("mined", "job", jobID, "index", block.Index(), "hash", block.Hash())
		},
	})
	defer mgr.Shutdown()

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	debugMux := handlers.DebugMux(build, log, st)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 2)

	muxCfg := handlers.MuxConfig{
		Shutdown: shutdown,
		Log:      log,
		State:    st,
		Jobs:     mgr,
		NS:       ns,
		Evts:     evts,
	}

	// =========================================================================
	// Start Public Service

	log.Infow("startup", "status", "initializing V1 public API support")

	public := http.Server{
		Addr:         cfg.Web.PublicHost,
		Handler:      handlers.PublicMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "public api router started", "host", public.Addr)
		serverErrors <- public.ListenAndServe()
	}()

	// =========================================================================
	// Start Private Service

	log.Infow("startup", "status", "initializing V1 private API support")

	private := http.Server{
		Addr:         cfg.Web.PrivateHost,
		Handler:      handlers.PrivateMux(muxCfg),
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	go func() {
		log.Infow("startup", "status", "private api router started", "host", private.Addr)
		serverErrors <- private.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding requests a deadline for completion.
		ctx, cancelPri := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPri()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown private API started")
		if err := private.Shutdown(ctx); err != nil {
			private.Close()
			return fmt.Errorf("could not stop private service gracefully: %w", err)
		}

		// Give outstanding requests a deadline for completion.
		ctx, cancelPub := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancelPub()

		// Asking listener to shut down and shed load.
		log.Infow("shutdown", "status", "shutdown public API started")
		if err := public.Shutdown(ctx); err != nil {
			public.Close()
			return fmt.Errorf("could not stop public service gracefully: %w", err)
		}
	}

	return nil
}

// openStorage constructs the durable store named in the configuration.
func openStorage(kind string, dir string, ev state.EventHandler) (state.Storage, error) {
	switch kind {
	case "memory":
		return memory.New(), nil

	case "leveldb":
		db, err := leveldb.New(filepath.Join(dir, "leveldb"), ev)
		if err != nil {
			return nil, fmt.Errorf("unable to open leveldb: %w", err)
		}
		return db, nil

	case "badger":
		db, err := badgerdb.New(filepath.Join(dir, "badger"))
		if err != nil {
			return nil, fmt.Errorf("unable to open badger: %w", err)
		}
		return db, nil

	case "none", "":
		return nil, nil
	}

	return nil, fmt.Errorf("unknown storage %q", kind)
}
