package stage

import (
	"context"
	"fmt"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/worker"
)

// WarehouseFile describes one file discovered under a TransferRequest's
// warehouse path.
type WarehouseFile struct {
	LogicalName string
	FileSize    int64
	SHA512      string
}

// FileEnumerator discovers the files a TransferRequest's path covers. The
// concrete implementation walks the local warehouse filesystem; tests
// substitute a fake.
type FileEnumerator interface {
	Enumerate(path string) ([]WarehouseFile, error)
}

// Picker claims TransferRequests and creates the Bundle(s) + Metadata rows
// that represent the warehouse files under each request's path (spec §4.5,
// §8 scenario 1).
type Picker struct {
	common
	enumerator FileEnumerator
}

// NewPicker builds a Picker using enumerator to discover warehouse files.
func NewPicker(enumerator FileEnumerator) *Picker {
	return &Picker{enumerator: enumerator}
}

func (p *Picker) ExpectedConfig() []string { return nil }

func (p *Picker) Configure(cfg config.Map) error {
	p.common = newCommon(cfg, cmn.GenUUID())
	return nil
}

func (p *Picker) Status() map[string]interface{} { return nil }

func (p *Picker) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	req, err := rc.PopTransferRequest(ctx, p.sourceSite, p.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if req == nil {
		return worker.NothingClaimed(), nil
	}

	files, err := p.enumerator.Enumerate(req.Path)
	if err != nil {
		return worker.QuarantineRequestNow(req, fmt.Errorf("enumerate warehouse path %s: %w", req.Path, err)), nil
	}
	if len(files) == 0 {
		return worker.QuarantineRequestNow(req, fmt.Errorf("no files found under warehouse path %s", req.Path)), nil
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.FileSize
	}

	bundle := cmn.Bundle{
		Request: req.UUID,
		Source:  req.Source,
		Dest:    firstOrEmpty(req.Dest),
		Path:    req.Path,
		Size:    totalSize,
		Status:  cmn.BundleSpecified,
	}
	bundleUUIDs, err := rc.BulkCreateBundles(ctx, []cmn.Bundle{bundle})
	if err != nil {
		return worker.QuarantineRequestNow(req, fmt.Errorf("create bundle: %w", err)), nil
	}
	bundleUUID := bundleUUIDs[0]

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.LogicalName
	}
	if _, err := rc.BulkCreateMetadata(ctx, bundleUUID, names); err != nil {
		return worker.QuarantineRequestNow(req, fmt.Errorf("create metadata: %w", err)), nil
	}

	if err := rc.PatchTransferRequest(ctx, req.UUID, map[string]interface{}{
		"claimed":         false,
		"update_timestamp": cmn.Now(),
	}); err != nil {
		return worker.Outcome{}, err
	}

	return worker.Successful(), nil
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
