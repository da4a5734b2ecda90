// This program performs administrative tasks against a running node by
// pulling its chain and replaying it locally.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ardanlabs/powledger/app/tooling/admin/commands"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/logger"
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
	if len(os.Args) < 3 {
		return errors.New("usage: admin [verify|bals|trans] <host> [keys...]")
	}

	gen, err := genesis.Load(genesisPath())
	if err != nil {
		return err
	}

	log.Infow("startup", "version", build, "host", os.Args[2])

	return processCommands(os.Args, gen, log)
}

// processCommands handles the execution of the commands specified on
// the command line.
func processCommands(args []string, gen genesis.Genesis, log *zap.SugaredLogger) error {
	switch args[1] {
	case "verify":
		if err := commands.Verify(args, gen, log); err != nil {
			return fmt.Errorf("verifying chain: %w", err)
		}
	case "bals":
		if err := commands.Balances(args, gen, log); err != nil {
			return fmt.Errorf("getting balances: %w", err)
		}
	case "trans":
		if err := commands.Transactions(args, gen, log); err != nil {
			return fmt.Errorf("getting transaction: %w", err)
		}
	default:
		return fmt.Errorf("unknown command %q", args[1])
	}

	return nil
}

func genesisPath() string {
	if path := os.Getenv("ADMIN_GENESIS_PATH"); path != "" {
		return path
	}
	return "zblock/genesis.json"
}
