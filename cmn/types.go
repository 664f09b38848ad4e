// Package cmn provides the shared types and low-level utilities used across
// the Long Term Archive: the three persistent entities, checksums, locations,
// and timestamp conventions common to the REST service and every worker.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package cmn

// Status values for a TransferRequest. See spec §3.
const (
	TransferRequestUnclaimed  = "unclaimed"
	TransferRequestProcessing = "processing"
	TransferRequestCompleted  = "completed"
	TransferRequestQuarantined = "quarantined"
)

// Status values for a Bundle's canonical and retrieval-path progressions,
// plus the sticky quarantine side state. See spec §3.
const (
	BundleSpecified    = "specified"
	BundleCreated       = "created"
	BundleStaged        = "staged"
	BundleTransferring  = "transferring"
	BundleTaping        = "taping"
	BundleVerifying     = "verifying"
	BundleCompleted     = "completed"
	BundleDetached      = "detached"
	BundleDeleted       = "deleted"
	BundleFinished      = "finished"

	BundleRequested  = "requested"
	BundleLocated    = "located"
	BundleUnpacking  = "unpacking"

	BundleQuarantined = "quarantined"
)

// Checksum holds the digests computed for a Bundle's archive artifact.
type Checksum struct {
	SHA512  string `json:"sha512,omitempty"`
	Adler32 string `json:"adler32,omitempty"`
}

// Location names a site and a path within it, used both for a Bundle's
// final destination and for catalog file locations.
type Location struct {
	Site string `json:"site"`
	Path string `json:"path"`
}

// TransferRequest is the user-facing unit of work mapping a warehouse path
// to one or more destination sites.
type TransferRequest struct {
	UUID            string `json:"uuid"`
	Source          string `json:"source"`
	Dest            []string `json:"dest"`
	Path            string `json:"path"`
	Status          string `json:"status"`
	CreateTimestamp string `json:"create_timestamp"`
	UpdateTimestamp string `json:"update_timestamp"`
	Claimant        string `json:"claimant,omitempty"`
	Claimed         bool   `json:"claimed"`
	ClaimTimestamp  string `json:"claim_timestamp,omitempty"`
	Reason          string `json:"reason,omitempty"`
}

// Bundle is a ZIP archive aggregating warehouse files, plus its database
// record. Status is the principal dimension driving the claim queries that
// every stage worker issues.
type Bundle struct {
	UUID                string    `json:"uuid"`
	Request             string    `json:"request"`
	Source              string    `json:"source"`
	Dest                string    `json:"dest"`
	Path                string    `json:"path"`
	BundlePath          string    `json:"bundle_path,omitempty"`
	Size                int64     `json:"size,omitempty"`
	Checksum            Checksum  `json:"checksum"`
	Status              string    `json:"status"`
	Reason              string    `json:"reason,omitempty"`
	ReasonDetails       string    `json:"reason_details,omitempty"`
	TransferReference   string    `json:"transfer_reference,omitempty"`
	TransferDestPath    string    `json:"transfer_dest_path,omitempty"`
	FinalDestLocation   Location  `json:"final_dest_location"`
	CreateTimestamp     string    `json:"create_timestamp"`
	UpdateTimestamp     string    `json:"update_timestamp"`
	WorkPriorityTimestamp string  `json:"work_priority_timestamp,omitempty"`
	Claimant            string    `json:"claimant,omitempty"`
	Claimed             bool      `json:"claimed"`
	ClaimTimestamp      string    `json:"claim_timestamp,omitempty"`
	OriginalStatus      string    `json:"original_status,omitempty"`
}

// Metadata associates one file in the external file catalog with the Bundle
// that contains it, pending catalog registration.
type Metadata struct {
	UUID           string `json:"uuid"`
	BundleUUID     string `json:"bundle_uuid"`
	FileCatalogUUID string `json:"file_catalog_uuid"`
}
