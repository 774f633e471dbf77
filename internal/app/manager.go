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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/thruster_manager/internal/config"
	"github.com/relabs-tech/thruster_manager/internal/control"
	"github.com/relabs-tech/thruster_manager/internal/metrics"
	"github.com/relabs-tech/thruster_manager/internal/t200"
	"github.com/relabs-tech/thruster_manager/internal/tether"
	"github.com/relabs-tech/thruster_manager/internal/thruster"
)

// RunThrusterManager runs the thruster node: velocity commands from MQTT
// and the serial tether drive the thrusters, and health diagnostics are
// published every monitor period until SIGINT or SIGTERM.
func RunThrusterManager() error {
	cfg := config.Get()
	defer setupLogging("manager", cfg).Close()

	bank, closeBus, err := buildBank(cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := newStatusStore()
	sink := &recordingSink{store: store}
	node := control.New(bank, control.Options{
		Thresholds:      cfg.Thresholds,
		MonitorInterval: cfg.MonitorPeriod(),
		Sink:            sink,
		Observer:        m,
	})

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDManager, "manager", func(c mqtt.Client) {
		subscribe(c, "manager", cfg.TopicThrusterCommands, commandHandler(node.Submit))
	})
	if err != nil {
		return err
	}
	defer client.Disconnect(250)
	sink.next = &mqttSink{client: client, topic: cfg.TopicDiagnostics}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return node.Run(gctx) })

	if cfg.MetricsPort > 0 {
		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler:           newManagerRouter(store, m),
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Printf("manager: metrics listening on %s", srv.Addr)
		g.Go(func() error { return serveHTTP(gctx, "manager", srv) })
	}

	if cfg.TetherSerialPort != "" {
		g.Go(func() error {
			err := tether.Run(gctx, cfg.TetherSerialPort, cfg.TetherBaudRate, node.Submit)
			if err != nil && !errors.Is(err, context.Canceled) {
				// The node keeps running on MQTT commands alone.
				log.Printf("manager: tether stopped: %v", err)
			}
			return nil
		})
	}

	log.Printf("manager: running %d thrusters (%s driver), monitor every %s",
		len(bank.Entries()), cfg.ThrusterDriver, cfg.MonitorPeriod())
	err = g.Wait()
	log.Println("manager: shut down")
	return err
}

func newManagerRouter(store *statusStore, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	store.routes(r)
	return r
}

// buildBank creates one driver per thruster in diagnostics order. The
// returned func releases the I2C bus, if one was opened.
func buildBank(cfg *config.Config) (*thruster.Bank, func() error, error) {
	order, err := cfg.Order()
	if err != nil {
		return nil, nil, err
	}

	noop := func() error { return nil }
	var bus i2c.BusCloser
	if cfg.ThrusterDriver == "i2c" {
		if _, err := host.Init(); err != nil {
			return nil, nil, fmt.Errorf("failed to initialize periph: %w", err)
		}
		bus, err = i2creg.Open(cfg.ThrusterI2CBus)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open I2C bus %q: %w", cfg.ThrusterI2CBus, err)
		}
		log.Printf("manager: opened thruster I2C bus %s", bus)
	}

	entries := make([]thruster.Entry, 0, len(order))
	for _, id := range order {
		var drv thruster.Driver
		if bus != nil {
			drv = t200.New(bus, cfg.Addr(id), cfg.Name(id))
			log.Printf("manager: %s on I2C address 0x%02X", cfg.Name(id), cfg.Addr(id))
		} else {
			drv = thruster.NewSimDriver(cfg.SimSupplyVolts)
			log.Printf("manager: %s simulated at %.1f V", cfg.Name(id), cfg.SimSupplyVolts)
		}
		entries = append(entries, thruster.Entry{ID: id, Name: cfg.Name(id), Driver: drv})
	}

	bank, err := thruster.NewBank(entries...)
	if err != nil {
		if bus != nil {
			bus.Close()
		}
		return nil, nil, err
	}
	if bus == nil {
		return bank, noop, nil
	}
	return bank, bus.Close, nil
}
