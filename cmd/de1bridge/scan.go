package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/srg/de1bridge/internal/bridge"
)

// scanWindow is how long each BLE scan runs before the loop starts a
// fresh one, so newly advertising devices are still picked up for
// auto-connect after the process has been running a while.
const scanWindow = 30 * time.Second

// runScanLoop keeps a BLE scan running until ctx is cancelled, so the
// Bridge's auto-connect policies see advertisements continuously
// rather than only once at startup.
func runScanLoop(ctx context.Context, br *bridge.Bridge, logger *logrus.Logger) {
	ticker := time.NewTicker(scanWindow)
	defer ticker.Stop()

	startScan := func() {
		if err := br.Scan(ctx, scanWindow); err != nil {
			logger.WithError(err).Warn("scan failed to start")
		}
	}

	startScan()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			startScan()
		}
	}
}
