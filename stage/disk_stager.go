package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/quota"
	"github.com/WIPACrepo/lta/worker"
)

// DiskStager moves a bundle archive between two configured directories,
// deferring (rather than failing) the bundle when the destination directory
// is at or over its configured quota. Grounded directly on
// original_source's rate_limiter.py.
type DiskStager struct {
	common
	inputPath   string
	outputPath  string
	outputQuota int64
}

func NewDiskStager() *DiskStager { return &DiskStager{} }

func (d *DiskStager) ExpectedConfig() []string {
	return []string{"INPUT_PATH", "OUTPUT_PATH", "OUTPUT_QUOTA"}
}

func (d *DiskStager) Configure(cfg config.Map) error {
	d.common = newCommon(cfg, cmn.GenUUID())
	d.inputPath = cfg["INPUT_PATH"]
	d.outputPath = cfg["OUTPUT_PATH"]
	d.outputQuota = int64(cfg.Int("OUTPUT_QUOTA"))
	return nil
}

func (d *DiskStager) Status() map[string]interface{} { return nil }

func (d *DiskStager) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, d.sourceSite, d.destSite, d.inputStatus, d.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	exceeds, err := quota.WouldExceed(d.outputPath, bundle.Size, d.outputQuota)
	if err != nil {
		return worker.QuarantineBundleNow(bundle, fmt.Errorf("measure output quota: %w", err)), nil
	}
	if exceeds {
		if err := unclaim(ctx, rc, bundle.UUID); err != nil {
			return worker.Outcome{}, err
		}
		return worker.Successful(), nil
	}

	name := filepath.Base(bundle.BundlePath)
	src := filepath.Join(d.inputPath, name)
	dst := filepath.Join(d.outputPath, name)
	if err := os.Rename(src, dst); err != nil {
		return worker.QuarantineBundleNow(bundle, fmt.Errorf("stage %s -> %s: %w", src, dst, err)), nil
	}

	err = patchSuccess(ctx, rc, bundle.UUID, d.outputStatus, map[string]interface{}{
		"bundle_path":      dst,
		"update_timestamp": cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}
