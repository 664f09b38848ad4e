package stage

import (
	"context"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/worker"
)

// Finisher claims deleted Bundles and checks whether every sibling Bundle
// spawned by the same TransferRequest has also reached {deleted, finished}.
// Once they all have, the TransferRequest is marked completed and its
// Bundles are advanced to "finished"; otherwise the claimed Bundle is put
// back at the end of the line to be rechecked later. Grounded on
// original_source's transfer_request_finisher.py.
type Finisher struct {
	common
}

func NewFinisher() *Finisher { return &Finisher{} }

func (f *Finisher) ExpectedConfig() []string { return nil }

func (f *Finisher) Configure(cfg config.Map) error {
	f.common = newCommon(cfg, cmn.GenUUID())
	return nil
}

func (f *Finisher) Status() map[string]interface{} { return nil }

func (f *Finisher) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, f.sourceSite, f.destSite, f.inputStatus, f.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	if err := f.updateTransferRequest(ctx, rc, bundle); err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}

func (f *Finisher) updateTransferRequest(ctx context.Context, rc *client.Client, bundle *cmn.Bundle) error {
	siblings, err := rc.ListBundlesByRequest(ctx, bundle.Request)
	if err != nil {
		return err
	}

	remaining := 0
	for _, sib := range siblings {
		if sib.Status != cmn.BundleDeleted && sib.Status != cmn.BundleFinished {
			remaining++
		}
	}

	if remaining > 0 {
		return unclaim(ctx, rc, bundle.UUID)
	}

	now := cmn.Now()
	claimant := f.claimant()
	if err := rc.PatchTransferRequest(ctx, bundle.Request, map[string]interface{}{
		"claimant":        claimant,
		"claimed":         false,
		"claim_timestamp": now,
		"status":          cmn.TransferRequestCompleted,
		"reason":          "",
		"update_timestamp": now,
	}); err != nil {
		return err
	}

	for _, sib := range siblings {
		if err := rc.PatchBundle(ctx, sib.UUID, map[string]interface{}{
			"claimant":        claimant,
			"claimed":         false,
			"claim_timestamp": now,
			"status":          f.outputStatus,
			"reason":          "",
			"update_timestamp": now,
		}); err != nil {
			return err
		}
	}
	return nil
}
