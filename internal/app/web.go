// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/thruster_manager/internal/config"
)

// webRoot holds the static status page.
const webRoot = "web"

// RunWeb serves the thruster status page, the JSON status API and a
// websocket feed, all backed by the diagnostics topic.
func RunWeb() error {
	cfg := config.Get()
	defer setupLogging("web", cfg).Close()

	store := newStatusStore()

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeb, "web", func(c mqtt.Client) {
		subscribe(c, "web", cfg.TopicDiagnostics, statusHandler("web", store.Set))
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler:           newWebRouter(store, webRoot),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Printf("web: server listening on %s", srv.Addr)
	return serveHTTP(ctx, "web", srv)
}

func newWebRouter(store *statusStore, staticDir string) *mux.Router {
	r := mux.NewRouter()
	store.routes(r)
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	return r
}

// serveHTTP runs srv until ctx is done, then shuts it down gracefully.
func serveHTTP(ctx context.Context, component string, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return fmt.Errorf("%s: http server: %w", component, err)
	case <-ctx.Done():
	}

	log.Printf("%s: shutting down", component)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s: http shutdown: %w", component, err)
	}
	return nil
}
