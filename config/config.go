// Package config loads the node's TOML configuration file into a
// strongly-typed Configuration, applying sensible defaults when a key
// is left unset.
package config

import (
	"fmt"
	"time"

	"github.com/pelletier/go-toml"
)

// PoolSyncerConfig holds the out-of-order recovery knobs for when a
// neighbor is ahead. Neither Conveyer nor BlockChain reads them.
type PoolSyncerConfig struct {
	RoundsTillForceResync uint32
	RequestRepeatRound    uint32
}

// ExecutorConfig carries the TCP endpoint for the contract-execution
// co-process.
type ExecutorConfig struct {
	Host           string
	Port           int
	SendTimeout    time.Duration
	ReceiveTimeout time.Duration
	CmdLine        string
}

// APIConfig tunes the read-only HTTP/indexing surface.
type APIConfig struct {
	ListenAddr  string
	HistoryPath string
}

// Configuration is the full set of node-startup knobs: a top-level
// table for node-wide settings and one nested table per subsystem.
type Configuration struct {
	ChainDataPath string
	LogPath       string
	Verbose       bool

	HostAddr string
	HostPort int

	PoolSyncer PoolSyncerConfig
	Executor   ExecutorConfig
	API        APIConfig
}

// Default is the out-of-the-box configuration a freshly installed node
// starts with.
var Default = Configuration{
	ChainDataPath: "chain.db",
	LogPath:       "node.log",
	Verbose:       false,

	HostAddr: "127.0.0.1",
	HostPort: 9000,

	PoolSyncer: PoolSyncerConfig{
		RoundsTillForceResync: 20,
		RequestRepeatRound:    1,
	},
	Executor: ExecutorConfig{
		Host:           "127.0.0.1",
		Port:           9001,
		SendTimeout:    4 * time.Second,
		ReceiveTimeout: 4 * time.Second,
	},
	API: APIConfig{
		ListenAddr:  "127.0.0.1:8080",
		HistoryPath: "history.db",
	},
}

// Load reads path and decodes it on top of Default, so an omitted
// table or key keeps its default rather than zeroing out.
func Load(path string) (Configuration, error) {
	cfg := Default
	tree, err := toml.LoadFile(path)
	if err != nil {
		return Configuration{}, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	if err := tree.Unmarshal(&cfg); err != nil {
		return Configuration{}, fmt.Errorf("config: failed to decode %s: %w", path, err)
	}
	return cfg, nil
}
