// Package main is the LTA DB executable: the REST service fronting the
// store of TransferRequests, Bundles, and Metadata (spec §4.1-§4.3).
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WIPACrepo/lta/metrics"
	"github.com/WIPACrepo/lta/server"
	"github.com/WIPACrepo/lta/store"
)

var (
	addr          = flag.String("addr", envOr("LTA_REST_ADDR", ":8080"), "address to listen on")
	metricsAddr   = flag.String("metrics-addr", envOr("LTA_REST_METRICS_ADDR", ":8081"), "address to serve /metrics on")
	dbPath        = flag.String("db", envOr("LTA_REST_DB_PATH", "lta.db"), "buntdb file path (\":memory:\" for ephemeral)")
	jwtSecret     = flag.String("jwt-secret", os.Getenv("LTA_REST_JWT_SECRET"), "shared secret validating inbound bearer tokens")
	jwtAlgorithm  = flag.String("jwt-algorithm", envOr("LTA_REST_JWT_ALGORITHM", "HS512"), "JWT signing algorithm")
	staleAfterSec = flag.Int("stale-after-seconds", 300, "component status is considered stale after this many seconds of silence")
)

func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := log.WithField("component", "lta-rest")

	st, err := store.Open(*dbPath)
	if err != nil {
		entry.WithError(err).Error("failed to open store")
		return 1
	}
	defer st.Close()

	reg := metrics.New()

	auth := server.AuthConfig{Secret: *jwtSecret, Algorithm: *jwtAlgorithm}
	srv := server.New(st, reg, entry, auth, time.Duration(*staleAfterSec)*time.Second)

	httpServer := &http.Server{Addr: *addr, Handler: srv}
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: reg.Handler()}

	errCh := make(chan error, 2)
	go func() {
		entry.Infof("serving REST API on %s", *addr)
		errCh <- httpServer.ListenAndServe()
	}()
	go func() {
		entry.Infof("serving metrics on %s", *metricsAddr)
		errCh <- metricsServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Error("server exited unexpectedly")
			return 1
		}
	case sig := <-sigCh:
		entry.Infof("received signal %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(ctx)
		_ = metricsServer.Shutdown(ctx)
	}
	return 0
}
