// Copyright (c) 2013-2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/chainrelay/mempool/estimator"
	"github.com/chainrelay/mempool/events"
	"github.com/chainrelay/mempool/events/wshub"
	"github.com/chainrelay/mempool/mempool"
)

// logWriter fans out to both stdout and the rotator, mirroring the
// teacher's internal/log package.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	backendLog = btclog.NewBackend(logWriter{})
	logRotator *rotator.Rotator

	poolLog  = backendLog.Logger("POOL")
	estimLog = backendLog.Logger("FEES")
	wshubLog = backendLog.Logger("WSHB")
	mainLog  = backendLog.Logger("MAIN")
)

var subsystemLoggers = map[string]btclog.Logger{
	"POOL": poolLog,
	"FEES": estimLog,
	"WSHB": wshubLog,
	"MAIN": mainLog,
}

// InitLogRotator creates the log rotator pointed at logFile. It must run
// before any subsystem logger is used for anything but discarding output.
func InitLogRotator(logFile string) error {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		return fmt.Errorf("config: create log rotator: %w", err)
	}
	logRotator = r
	return nil
}

// UseLogger wires each package's package-level logger to this backend and
// sets every subsystem to level. Call once during startup, after
// InitLogRotator.
func UseLogger(level string) {
	mempool.UseLogger(poolLog)
	estimator.UseLogger(estimLog)
	wshub.UseLogger(wshubLog)
	events.UseLogger(mainLog)

	for name, logger := range subsystemLoggers {
		lvl, ok := btclog.LevelFromString(level)
		if !ok {
			lvl = btclog.LevelInfo
		}
		logger.SetLevel(lvl)
		subsystemLoggers[name] = logger
	}
}
