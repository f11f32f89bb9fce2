// Command noded runs the ledger node's single-process entrypoint: it
// opens the chain database and serves the read-only HTTP API. Wiring
// the round-based Conveyer/Generals consensus loop and the executor
// link into this entrypoint is not yet done; those packages exist and
// are tested standalone but runRootCmd does not construct or drive them.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Stoner19/node/api"
	"github.com/Stoner19/node/blockchain"
	"github.com/Stoner19/node/build"
	"github.com/Stoner19/node/config"
	"github.com/Stoner19/node/crypto"
	"github.com/Stoner19/node/persist"
)

var rootCfg = config.Default

func main() {
	root := &cobra.Command{
		Use:   os.Args[0],
		Short: "Node Daemon v" + build.Version.String(),
		Long:  "Node Daemon v" + build.Version.String(),
		Run:   runRootCmd,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("Node Daemon v%s\n", build.Version.String())
		},
	})

	root.Flags().StringVarP(&rootCfg.ChainDataPath, "chain-data", "d", rootCfg.ChainDataPath, "location of the chain database file")
	root.Flags().StringVarP(&rootCfg.LogPath, "log-file", "", rootCfg.LogPath, "location of the daemon log file")
	root.Flags().BoolVarP(&rootCfg.Verbose, "verbose", "v", rootCfg.Verbose, "enable debug-level logging")
	root.Flags().StringVarP(&rootCfg.API.ListenAddr, "api-addr", "", rootCfg.API.ListenAddr, "host:port the HTTP API listens on")
	root.Flags().StringVarP(&rootCfg.Executor.Host, "executor-host", "", rootCfg.Executor.Host, "hostname of the contract-execution co-process")
	root.Flags().IntVarP(&rootCfg.Executor.Port, "executor-port", "", rootCfg.Executor.Port, "port of the contract-execution co-process")
	root.Flags().StringVarP(&configFilePath, "config-file", "c", "", "path to a TOML config file; when set, its values (defaults for unset keys) replace all flags above")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}

var configFilePath string

func runRootCmd(*cobra.Command, []string) {
	cfg := rootCfg
	if configFilePath != "" {
		loaded, err := config.Load(configFilePath)
		if err != nil {
			die("failed to load config file", err)
		}
		cfg = loaded
	}

	log, err := persist.NewFileLogger(persist.BlockchainInfo{Name: "node"}, cfg.LogPath, cfg.Verbose)
	if err != nil {
		die("failed to open log file", err)
	}
	defer log.Close()

	genesisAddr, startAddr, err := loadOrCreateIdentity(filepath.Dir(cfg.ChainDataPath))
	if err != nil {
		die("failed to load node identity", err)
	}

	bc, err := blockchain.New(cfg.ChainDataPath, log, genesisAddr, startAddr)
	if err != nil {
		die("failed to open chain database", err)
	}
	defer bc.Close()

	srv, err := api.NewServer(cfg.API.ListenAddr, bc)
	if err != nil {
		die("failed to start API server", err)
	}
	defer srv.Close()

	log.Println("API listening on", srv.Addr().String())
	if err := srv.Serve(); err != nil {
		die("API server failed", err)
	}
}

// loadOrCreateIdentity mints a fresh genesis/start key pair on every
// call; dir is accepted for the future on-disk identity file but
// nothing is read or written there yet, so every restart gets a new
// genesis address. This is a single-node development convenience, not
// a production key-management story.
func loadOrCreateIdentity(dir string) (genesis, start crypto.PublicKey, err error) {
	_, genesis = crypto.GenerateKeyPair()
	_, start = crypto.GenerateKeyPair()
	return genesis, start, nil
}

func die(context string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", context, err)
	os.Exit(1)
}
