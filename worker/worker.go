// Package worker implements the generic worker framework every LTA stage
// runs inside (spec §4.4): config validation, the claim/process/sleep loop,
// the drain semaphore, run-once/run-until-no-work termination, and the
// quarantine helper.
//
// Grounded on the teacher's xaction/xreg package: a generic registry and
// lifecycle wrapper dispatching to heterogeneous job kinds through one
// interface, generalized here to heterogeneous LTA stages driven by the
// same outer claim loop.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/sirupsen/logrus"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/metrics"
)

// Worker drives one StageHandler through its configured lifetime.
type Worker struct {
	cfg     config.Map
	stage   StageHandler
	log     *logrus.Entry
	metrics *metrics.Registry
	rest    *client.Client

	componentType string
	componentName string
	instanceUUID  string
	instanceDigest uint64

	sleepDuration time.Duration
	runOnceAndDie bool
	runUntilEmpty bool
	drainPath     string
}

// New validates cfg against config.CommonKeys plus stage.ExpectedConfig(),
// logs the redacted configuration, and builds a Worker ready to Run (spec
// §4.4 step 1). componentType names the stage kind ("picker", "bundler",
// ...) and is supplied by the caller (cmd/lta-worker), not read from cfg —
// it drives the drain-semaphore filename and metric labels, while
// COMPONENT_NAME (a config key) names this particular running instance.
func New(cfg config.Map, componentType string, stage StageHandler, log *logrus.Entry, reg *metrics.Registry) (*Worker, error) {
	expected := append(append([]string{}, config.CommonKeys...), stage.ExpectedConfig()...)
	if err := cfg.Validate(expected); err != nil {
		return nil, err
	}
	cfg.LogConfig(log)

	if configurable, ok := stage.(Configurable); ok {
		if err := configurable.Configure(cfg); err != nil {
			return nil, fmt.Errorf("configure stage: %w", err)
		}
	}

	instanceUUID := cmn.GenUUID()
	// A short numeric fingerprint of the instance identity, cheap to carry
	// on every log line and metric sample for fast correlation without
	// printing the full UUID (mirrors the teacher's node idDigest).
	instanceDigest := xxhash.ChecksumString64S(instanceUUID, 0)

	rest := client.New(client.Config{
		RestURL:      cfg["LTA_REST_URL"],
		TokenURL:     cfg["LTA_AUTH_OPENID_URL"],
		ClientID:     cfg["CLIENT_ID"],
		ClientSecret: cfg["CLIENT_SECRET"],
		Timeout:      time.Duration(cfg.Int("WORK_TIMEOUT_SECONDS")) * time.Second,
		Retries:      cfg.Int("WORK_RETRIES"),
	})

	log = log.WithField("instance_digest", instanceDigest)

	return &Worker{
		cfg:            cfg,
		stage:          stage,
		log:            log,
		metrics:        reg,
		rest:           rest,
		componentType:  componentType,
		componentName:  cfg["COMPONENT_NAME"],
		instanceUUID:   instanceUUID,
		instanceDigest: instanceDigest,
		sleepDuration: time.Duration(cfg.Int("WORK_SLEEP_DURATION_SECONDS")) * time.Second,
		runOnceAndDie: cfg.Bool("RUN_ONCE_AND_DIE"),
		runUntilEmpty: cfg.Bool("RUN_UNTIL_NO_WORK"),
		drainPath:     ".lta-" + componentType + "-drain",
	}, nil
}

// Run enters the work loop and blocks until the context is cancelled, the
// drain semaphore appears, or (with run_once_and_die/run_until_no_work) the
// configured termination condition is reached (spec §4.4 steps 2-6).
func (w *Worker) Run(ctx context.Context) error {
	for {
		if w.drained() {
			w.log.Info("drain semaphore present, exiting cleanly")
			return nil
		}

		claimed := w.runCycle(ctx)

		if err := w.reportStatus(ctx, claimed); err != nil {
			w.log.WithError(err).Warn("status PATCH failed")
		}

		if w.runOnceAndDie {
			return nil
		}
		if w.runUntilEmpty && claimed == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.sleepDuration):
		}
	}
}

// runCycle repeatedly claims and processes bundles until the stage reports
// NothingClaimed or the cycle hits an exception-equivalent error (spec §4.4
// step 3, §4.4 step 4). It returns the number of successfully claimed items.
func (w *Worker) runCycle(ctx context.Context) int {
	claimedCount := 0
	for {
		outcome, err := w.stage.DoWorkClaim(ctx, w.rest)
		if err != nil {
			w.log.WithError(err).WithField("component", w.componentType).
				Error("stage raised during claim cycle; returning to sleep loop")
			w.metrics.WorkOutcome(w.componentType, "error", "exception", "error")
			return claimedCount
		}

		switch {
		case outcome.IsSuccessful():
			claimedCount++
			w.metrics.WorkOutcome(w.componentType, "info", "bundle", "success")
		case outcome.IsNothingClaimed():
			w.metrics.SetLoadLevel(w.componentType, claimedCount)
			return claimedCount
		case outcome.IsQuarantineNow():
			w.quarantine(ctx, outcome)
			w.metrics.SetLoadLevel(w.componentType, claimedCount)
			return claimedCount
		}
	}
}

func (w *Worker) drained() bool {
	_, err := os.Stat(w.drainPath)
	return err == nil
}

func (w *Worker) reportStatus(ctx context.Context, claimedCount int) error {
	fields := map[string]interface{}{
		"timestamp":       cmn.Now(),
		"component":       w.componentType,
		"claimed_in_cycle": claimedCount,
	}
	status := w.stage.Status()
	for k, v := range status {
		fields[k] = v
	}
	return w.rest.PatchStatus(ctx, w.componentType, fields)
}
