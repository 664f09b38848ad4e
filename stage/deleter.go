package stage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/worker"
)

// Deleter removes a staged bundle archive from disk once it has been
// verified and is no longer needed, the last stop before a bundle's
// TransferRequest can be finished (spec §4.5). Grounded on
// original_source's deleter.py.
type Deleter struct {
	common
	diskBasePath string
}

func NewDeleter() *Deleter { return &Deleter{} }

func (d *Deleter) ExpectedConfig() []string { return []string{"DISK_BASE_PATH"} }

func (d *Deleter) Configure(cfg config.Map) error {
	d.common = newCommon(cfg, cmn.GenUUID())
	d.diskBasePath = cfg["DISK_BASE_PATH"]
	return nil
}

func (d *Deleter) Status() map[string]interface{} { return nil }

func (d *Deleter) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, d.sourceSite, d.destSite, d.inputStatus, d.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	bundlePath := filepath.Join(d.diskBasePath, filepath.Base(bundle.BundlePath))
	if err := os.Remove(bundlePath); err != nil {
		return worker.QuarantineBundleNow(bundle, fmt.Errorf("remove %s: %w", bundlePath, err)), nil
	}

	err = patchSuccess(ctx, rc, bundle.UUID, d.outputStatus, map[string]interface{}{
		"update_timestamp": cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}
