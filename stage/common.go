// Package stage implements the concrete StageHandlers the worker framework
// dispatches to (spec §4.5): picker, bundler, disk and network transport
// stages, tape stages, verifiers, the unpacker, the deleter, and the
// transfer-request finisher.
//
// Grounded on original_source's per-component modules (rate_limiter.py,
// deleter.py, transfer_request_finisher.py and siblings): each is a thin
// pop -> side-effect -> PATCH cycle, generalized here onto the worker.Outcome
// contract instead of exception-based control flow.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package stage

import (
	"context"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
)

// common holds the configuration every stage needs regardless of kind,
// mirroring original_source's Component base class.
type common struct {
	name         string
	instanceUUID string
	sourceSite   string
	destSite     string
	inputStatus  string
	outputStatus string
}

func newCommon(cfg config.Map, instanceUUID string) common {
	return common{
		name:         cfg["COMPONENT_NAME"],
		instanceUUID: instanceUUID,
		sourceSite:   cfg["SOURCE_SITE"],
		destSite:     cfg["DEST_SITE"],
		inputStatus:  cfg["INPUT_STATUS"],
		outputStatus: cfg["OUTPUT_STATUS"],
	}
}

// claimant is the `{name}-{instance_uuid}` identity every pop/patch carries.
func (c common) claimant() string { return c.name + "-" + c.instanceUUID }

// patchSuccess is the standard "advance to output status" PATCH every stage
// issues after a successful side effect (spec §4.5).
func patchSuccess(ctx context.Context, rc *client.Client, uuid string, outputStatus string, extra map[string]interface{}) error {
	body := map[string]interface{}{
		"status":   outputStatus,
		"reason":   "",
		"claimed":  false,
	}
	for k, v := range extra {
		body[k] = v
	}
	return rc.PatchBundle(ctx, uuid, body)
}

// unclaim puts a bundle back at the end of the line with a fresh priority
// timestamp, without advancing its status (spec §4.5's rate-limiter defer,
// and the finisher's "still waiting on siblings" case).
func unclaim(ctx context.Context, rc *client.Client, uuid string) error {
	return rc.PatchBundle(ctx, uuid, map[string]interface{}{
		"claimed":                 false,
		"update_timestamp":        cmn.Now(),
		"work_priority_timestamp": cmn.Now(),
	})
}
