package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/srg/de1bridge/internal/bridge"
	"github.com/srg/de1bridge/internal/discovery"
	"github.com/srg/de1bridge/internal/httpapi"
	"github.com/srg/de1bridge/internal/settingsstore"
	"github.com/srg/de1bridge/internal/transport/goble"
	"github.com/srg/de1bridge/internal/wsfanout"
)

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(flagVerbose)

	store, err := settingsstore.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	settings := store.Get()
	httpPort := settings.HTTPPort
	if flagHTTPPort != 0 {
		httpPort = flagHTTPPort
	}
	wsPort := settings.WebSocketPort
	if flagWSPort != 0 {
		wsPort = flagWSPort
	}

	ctx, cancel := signalContext()
	defer cancel()

	central := goble.New(logger)
	fanout := wsfanout.New(logger)
	br := bridge.New(central, store, fanout, logger)
	br.Run(ctx)

	if settings.AutoConnect || settings.AutoConnectScale || settings.DE1Address != "" {
		go runScanLoop(ctx, br, logger)
	}

	api := httpapi.New(br, store, fanout, logger)
	httpSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", httpPort),
		Handler:      api.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	wsSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", wsPort),
		Handler:      api.Router(),
		ReadTimeout:  0, // WebSocket connections are long-lived
		WriteTimeout: 0,
	}

	httpErrCh := make(chan error, 1)
	go func() {
		logger.WithField("port", httpPort).Info("HTTP API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrCh <- fmt.Errorf("http bind failed: %w", err)
		}
	}()

	wsErrCh := make(chan error, 1)
	go func() {
		logger.WithField("port", wsPort).Info("WebSocket listening")
		if err := wsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			wsErrCh <- fmt.Errorf("websocket bind failed: %w", err)
		}
	}()

	responder := discovery.NewUDPResponder(settings.BridgeName, httpPort, wsPort, version, logger)
	if err := responder.Run(ctx); err != nil {
		cancel()
		return err
	}

	var mdns *discovery.MDNSAdvertiser
	if ip := localIP(); ip != "" {
		mdns, err = discovery.Advertise(settings.BridgeName, httpPort, wsPort, ip, version)
		if err != nil {
			logger.WithError(err).Warn("mDNS advertisement failed to start")
		}
	}

	select {
	case <-ctx.Done():
	case err := <-httpErrCh:
		cancel()
		return err
	case err := <-wsErrCh:
		cancel()
		return err
	}

	logger.Info("shutting down")
	if mdns != nil {
		mdns.Shutdown()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = httpSrv.Shutdown(shutdownCtx)
	_ = wsSrv.Shutdown(shutdownCtx)
	return nil
}

func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return ""
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return ""
	}
	return addr.IP.String()
}
