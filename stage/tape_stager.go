package stage

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/transport"
	"github.com/WIPACrepo/lta/worker"
)

// TapeStager writes a bundle archive to HPSS via hsi (spec §4.5's tape
// stage): mkdir -p, then a checksummed put.
type TapeStager struct {
	common
	hpss      *transport.HPSSProvider
	hpssRoot  string
	putTimeout time.Duration
}

func NewTapeStager(hpss *transport.HPSSProvider) *TapeStager {
	return &TapeStager{hpss: hpss, putTimeout: 2 * time.Hour}
}

func (t *TapeStager) ExpectedConfig() []string { return []string{"HPSS_ROOT_PATH"} }

func (t *TapeStager) Configure(cfg config.Map) error {
	t.common = newCommon(cfg, cmn.GenUUID())
	t.hpssRoot = cfg["HPSS_ROOT_PATH"]
	return nil
}

func (t *TapeStager) Status() map[string]interface{} { return nil }

func (t *TapeStager) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, t.sourceSite, t.destSite, t.inputStatus, t.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	hpssPath := path.Join(t.hpssRoot, bundle.UUID+".zip")
	reference, err := t.hpss.Put(ctx, bundle.BundlePath, hpssPath, t.putTimeout)
	if err != nil {
		return worker.QuarantineBundleNow(bundle, fmt.Errorf("hpss put: %w", err)), nil
	}

	err = patchSuccess(ctx, rc, bundle.UUID, t.outputStatus, map[string]interface{}{
		"transfer_reference": reference,
		"final_dest_location": cmn.Location{Site: t.destSite, Path: reference},
		"update_timestamp":    cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}
