// Package main is the generic LTA worker executable: it reads COMPONENT_TYPE
// from its environment, builds the matching stage.StageHandler, and drives
// it with worker.Worker (spec §4.4-§4.5). One binary serves every stage; the
// deployment manifest picks the stage by setting COMPONENT_TYPE per replica
// set, the way original_source ran one Python entrypoint per component.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package main

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/WIPACrepo/lta/catalog"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/metrics"
	"github.com/WIPACrepo/lta/stage"
	"github.com/WIPACrepo/lta/transport"
	"github.com/WIPACrepo/lta/worker"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	componentType := os.Getenv("COMPONENT_TYPE")
	entry := log.WithField("component_type", componentType)
	if componentType == "" {
		entry.Error("COMPONENT_TYPE must be set")
		return 1
	}

	handler, extraConfig, err := newStageHandler(componentType)
	if err != nil {
		entry.WithError(err).Error("unknown COMPONENT_TYPE")
		return 1
	}

	cfg := config.FromEnvironment(append(handler.ExpectedConfig(), extraConfig...))

	reg := metrics.New()
	metricsAddr := ":" + cfg["PROMETHEUS_METRICS_PORT"]
	metricsServer := &http.Server{Addr: metricsAddr, Handler: reg.Handler()}
	go func() {
		entry.Infof("serving metrics on %s", metricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			entry.WithError(err).Error("metrics server exited unexpectedly")
		}
	}()

	w, err := worker.New(cfg, componentType, handler, entry, reg)
	if err != nil {
		entry.WithError(err).Error("failed to construct worker")
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		entry.Infof("received signal %s, shutting down", sig)
		cancel()
	}()

	runErr := w.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	if runErr != nil && ctx.Err() == nil {
		entry.WithError(runErr).Error("worker exited with error")
		return 1
	}
	return 0
}

// newStageHandler builds the StageHandler named by componentType, along with
// any additional environment keys (beyond what the handler itself declares
// via ExpectedConfig) to load into its config: those its transport
// construction needs and the optional per-stage toggles it reads.
func newStageHandler(componentType string) (worker.StageHandler, []string, error) {
	switch componentType {
	case "picker":
		return stage.NewPicker(localEnumerator{}), nil, nil
	case "bundler":
		return stage.NewBundler(), []string{"MANIFEST_COMPRESS"}, nil
	case "disk-stager":
		return stage.NewDiskStager(), nil, nil
	case "replicator-webdav":
		extra := []string{"WEBDAV_URL", "WEBDAV_USER", "WEBDAV_PASSWORD", "WEBDAV_MAX_PARALLEL", "DEST_ROOT_FULL_PATH"}
		maxParallel := 4
		if n, err := strconv.Atoi(os.Getenv("WEBDAV_MAX_PARALLEL")); err == nil {
			maxParallel = n
		}
		provider := transport.NewWebDAVProvider(os.Getenv("WEBDAV_URL"), os.Getenv("WEBDAV_USER"), os.Getenv("WEBDAV_PASSWORD"), maxParallel)
		return stage.NewReplicator(provider), extra, nil
	case "replicator-globus":
		extra := []string{"GLOBUS_API_BASE", "GLOBUS_SRC_ENDPOINT", "GLOBUS_DEST_ENDPOINT", "GLOBUS_TOKEN", "DEST_ROOT_FULL_PATH"}
		provider := transport.NewGlobusProvider(os.Getenv("GLOBUS_API_BASE"), os.Getenv("GLOBUS_SRC_ENDPOINT"), os.Getenv("GLOBUS_DEST_ENDPOINT"), os.Getenv("GLOBUS_TOKEN"))
		return stage.NewReplicator(provider), extra, nil
	case "replicator-gridftp":
		provider := transport.NewGridFTPProvider(os.Getenv("GRIDFTP_BINARY"))
		return stage.NewReplicator(provider), []string{"DEST_ROOT_FULL_PATH"}, nil
	case "tape-stager":
		extra := []string{"HSI_PATH"}
		return stage.NewTapeStager(transport.NewHPSSProvider(os.Getenv("HSI_PATH"))), extra, nil
	case "retriever":
		extra := []string{"HSI_PATH"}
		return stage.NewRetriever(transport.NewHPSSProvider(os.Getenv("HSI_PATH"))), extra, nil
	case "verifier-disk":
		return stage.NewVerifier(nil, newCatalogClient()), []string{"DEST_ROOT_FULL_PATH", "VERIFIER_ARCHIVE_LOCATION"}, nil
	case "verifier-hpss":
		extra := []string{"HSI_PATH", "DEST_ROOT_FULL_PATH", "VERIFIER_ARCHIVE_LOCATION"}
		return stage.NewVerifier(transport.NewHPSSProvider(os.Getenv("HSI_PATH")), newCatalogClient()), extra, nil
	case "unpacker":
		return stage.NewUnpacker(newCatalogClient(), nil), nil, nil
	case "deleter":
		return stage.NewDeleter(), nil, nil
	case "finisher":
		return stage.NewFinisher(), nil, nil
	default:
		return nil, nil, fmt.Errorf("no stage registered for COMPONENT_TYPE %q", componentType)
	}
}

func newCatalogClient() *catalog.Client {
	timeout := 30 * time.Second
	return catalog.New(os.Getenv("FILE_CATALOG_REST_URL"), os.Getenv("FILE_CATALOG_REST_TOKEN"), timeout)
}

// localEnumerator walks a warehouse directory tree on local disk, computing
// the SHA-512 of every regular file it finds (spec §4.5's picker contract).
type localEnumerator struct{}

func (localEnumerator) Enumerate(root string) ([]stage.WarehouseFile, error) {
	var files []stage.WarehouseFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sum, err := sha512File(path)
		if err != nil {
			return err
		}
		logicalName := strings.TrimPrefix(path, root)
		files = append(files, stage.WarehouseFile{LogicalName: logicalName, FileSize: info.Size(), SHA512: sum})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func sha512File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
