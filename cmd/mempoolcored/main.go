// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command mempoolcored wires the mempool core, eviction-aware pool,
// block assembler, compact-block reconstructor, fee estimator, metrics
// collector, and websocket notification hub together behind a single
// process. It accepts no peer connections and validates nothing itself;
// it exists to demonstrate how the pieces in this module fit, not to
// run a full node.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/chainrelay/mempool/config"
	"github.com/chainrelay/mempool/estimator"
	"github.com/chainrelay/mempool/events"
	"github.com/chainrelay/mempool/events/wshub"
	"github.com/chainrelay/mempool/mempool"
	"github.com/chainrelay/mempool/metrics"
	"github.com/chainrelay/mempool/mining"
	"github.com/chainrelay/mempool/primitives"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load()
	if err != nil {
		return err
	}

	if err := config.InitLogRotator(cfg.LogFilePath()); err != nil {
		return err
	}
	config.UseLogger(cfg.LogLevel)

	estimatorStore, err := estimator.Open(cfg.EstimatorDBPath)
	if err != nil {
		return fmt.Errorf("open fee estimator store: %w", err)
	}
	defer estimatorStore.Close()

	feeEstimator := estimator.New()
	if err := estimatorStore.Load(feeEstimator); err != nil {
		return fmt.Errorf("load fee estimator snapshot: %w", err)
	}

	queue := events.NewQueue(256)
	defer queue.Close()

	hub := wshub.New()
	queue.Subscribe(hub)

	pool := mempool.New(queue, feeEstimator)

	collector := metrics.NewCollector()

	miningCfg := mining.DefaultConfig()
	miningCfg.MaxWeight = cfg.MaxBlockWeight
	miningCfg.MaxSize = cfg.MaxBlockSize
	miningCfg.MinFeeRate = primitives.FeeRate{SatoshisPerKB: primitives.CAmount(cfg.MinTxFeePerKB)}
	if cfg.BlockVersion != 0 {
		miningCfg.BlockVersion = cfg.BlockVersion
	}
	assembler := mining.New(pool, miningCfg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	mux.HandleFunc("/template", templateHandler(assembler, collector))

	metricsServer := &http.Server{Addr: cfg.MetricsListenAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
		}
	}()
	defer metricsServer.Close()

	wsMux := http.NewServeMux()
	wsMux.Handle("/ws", hub)
	wsServer := &http.Server{Addr: cfg.WebSocketListenAddr, Handler: wsMux}
	go func() {
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "websocket server: %v\n", err)
		}
	}()
	defer wsServer.Close()

	collector.SetPoolSize(pool.Size(), pool.DynamicMemoryUsage())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	pool.RequestShutdown()
	queue.SyncQueue()

	if err := estimatorStore.Save(feeEstimator); err != nil {
		return fmt.Errorf("save fee estimator snapshot: %w", err)
	}
	return nil
}

// templateHandler serves the current best block template as JSON, purely
// for operators to inspect what the assembler would produce right now —
// this binary never submits a template anywhere. The coinbase is built at
// height 0 and pays to a bare OP_RETURN script (0x6a), which is enough
// for this demonstrative purpose.
func templateHandler(a *mining.Assembler, collector *metrics.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		tpl, err := a.CreateBlockTemplate(mining.CoinbaseParams{
			Height:    0,
			Script:    []byte{0x6a},
			Timestamp: time.Now(),
		})
		collector.ObserveTemplateAssembly(time.Since(start).Seconds())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			TransactionCount int                   `json:"transaction_count"`
			Fees             []primitives.CAmount `json:"fees"`
			Height           int32                 `json:"height"`
		}{
			TransactionCount: len(tpl.Transactions),
			Fees:             tpl.Fees,
			Height:           tpl.Height,
		})
	}
}
