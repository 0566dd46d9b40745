// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the external configuration surface of
// cmd/mempoolcored: the mining-policy knobs spec.md §6 names, plus the
// ambient flags every btcsuite-style daemon carries (log level/dir,
// listen addresses, estimator storage path).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	flags "github.com/jessevdk/go-flags"
)

const (
	defaultMaxBlockWeight  = 4_000_000
	defaultMaxBlockSize    = 1_000_000
	defaultMinTxFeePerKB   = 1000
	defaultBlockVersion    = 0x20000000
	defaultLogLevel        = "info"
	defaultEstimatorDBPath = "estimator.db"
	defaultMetricsAddr     = "127.0.0.1:9332"
	defaultWebSocketAddr   = "127.0.0.1:9333"
)

// Config mirrors spec.md §6's external interface table, plus the ambient
// flags a runnable daemon needs.
type Config struct {
	MaxBlockWeight int64 `long:"maxblockweight" description:"Maximum block weight to be used when assembling a template"`
	MaxBlockSize   int64 `long:"maxblocksize" description:"Maximum block size to be used when assembling a template"`
	MinTxFeePerKB  int64 `long:"mintxfeeperkb" description:"Minimum fee rate, in satoshis per kilobyte, for a transaction package to be included in a block template"`
	BlockVersion   int32 `long:"blockversion" description:"Block version to use when assembling a template (regtest only)"`
	PrintPriority  bool  `long:"printpriority" description:"Log the fee rate of each transaction as it is added to a block template"`

	LogLevel            string `long:"loglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical}"`
	LogDir              string `long:"logdir" description:"Directory to place log files"`
	EstimatorDBPath     string `long:"estimatordbpath" description:"Path to the fee estimator's persisted state"`
	MetricsListenAddr   string `long:"metricslisten" description:"Address to serve Prometheus metrics on"`
	WebSocketListenAddr string `long:"wslisten" description:"Address to serve the mempool-activity websocket hub on"`
}

// Default returns a Config populated with the same defaults the teacher's
// daemons use (a sane block weight/size, a modest fee floor, and local-only
// listen addresses for the ambient HTTP/websocket surfaces).
func Default() *Config {
	return &Config{
		MaxBlockWeight:      defaultMaxBlockWeight,
		MaxBlockSize:        defaultMaxBlockSize,
		MinTxFeePerKB:       defaultMinTxFeePerKB,
		BlockVersion:        defaultBlockVersion,
		LogLevel:            defaultLogLevel,
		EstimatorDBPath:     defaultEstimatorDBPath,
		MetricsListenAddr:   defaultMetricsAddr,
		WebSocketListenAddr: defaultWebSocketAddr,
	}
}

// Load parses os.Args into a Config seeded with Default's values.
func Load() (*Config, []string, error) {
	cfg := Default()

	parser := flags.NewParser(cfg, flags.Default)
	remaining, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return nil, nil, err
	}

	if cfg.MaxBlockWeight <= 0 {
		return nil, nil, fmt.Errorf("config: maxblockweight must be positive")
	}
	if cfg.MaxBlockSize <= 0 {
		return nil, nil, fmt.Errorf("config: maxblocksize must be positive")
	}
	if cfg.LogDir != "" {
		if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
			return nil, nil, fmt.Errorf("config: create log dir: %w", err)
		}
	}

	return cfg, remaining, nil
}

// LogFilePath joins LogDir with the fixed log file name, matching the
// teacher's convention of one rotated log file per daemon.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.LogDir, "mempoolcored.log")
}
