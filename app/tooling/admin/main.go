// This program performs administrative tasks against a chain snapshot while
// the node is stopped.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/conf/v3"
	"github.com/toychain/utxonode/app/tooling/admin/commands"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/genesis"
	"github.com/toychain/utxonode/foundation/logger"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("ADMIN")
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
	cfg := struct {
		conf.Version
		Args         conf.Args
		GenesisPath  string `conf:"default:zblock/genesis.json"`
		SnapshotPath string `conf:"default:zblock/chain.snapshot"`
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "snapshot administration",
		},
	}

	const prefix = "ADMIN"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	gen, err := genesis.Load(cfg.GenesisPath)
	if err != nil {
		return fmt.Errorf("loading genesis: %w", err)
	}

	data, err := os.ReadFile(cfg.SnapshotPath)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	db := database.New(gen)
	if err := db.Restore(data); err != nil {
		return fmt.Errorf("restoring snapshot: %w", err)
	}

	log.Infow("admin", "status", "snapshot loaded", "blocks", db.Len(), "difficulty", db.Difficulty())

	return processCommands(cfg.Args, db)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args conf.Args, db *database.Database) error {
	switch args.Num(0) {
	case "bals":
		if err := commands.Balances(os.Stdout, args.Num(1), db); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(os.Stdout, args.Num(1), db); err != nil {
			return fmt.Errorf("getting transactions: %w", err)
		}
	case "validate":
		if err := commands.Validate(os.Stdout, db); err != nil {
			return fmt.Errorf("validating chain: %w", err)
		}
	case "store":
		if err := commands.Store(os.Stdout, args.Num(1), args.Num(2), db); err != nil {
			return fmt.Errorf("rebuilding store: %w", err)
		}
	default:
		fmt.Println("bals [address]: show the balances")
		fmt.Println("trans [address]: show the committed transactions")
		fmt.Println("validate: check every block and replay the transactions")
		fmt.Println("store <leveldb|badger> <dir>: write the chain into a durable store")
	}

	return nil
}
