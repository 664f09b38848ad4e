package stage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/transport"
	"github.com/WIPACrepo/lta/worker"
)

// Replicator uploads a bundle archive to a remote destination through a
// transport.Provider (WebDAV, Globus, or GridFTP), recording the provider's
// reference on the bundle (spec §4.5's network transport stages).
type Replicator struct {
	common
	provider    transport.Provider
	destRoot    string
	fullPath    bool // if true, dest includes the full warehouse path, not just the basename
	putTimeout  time.Duration
}

// NewReplicator builds a Replicator driving provider.
func NewReplicator(provider transport.Provider) *Replicator {
	return &Replicator{provider: provider, putTimeout: 10 * time.Minute}
}

func (r *Replicator) ExpectedConfig() []string {
	return []string{"DEST_ROOT_PATH"}
}

func (r *Replicator) Configure(cfg config.Map) error {
	r.common = newCommon(cfg, cmn.GenUUID())
	r.destRoot = cfg["DEST_ROOT_PATH"]
	r.fullPath = cfg.Bool("DEST_ROOT_FULL_PATH")
	return nil
}

func (r *Replicator) Status() map[string]interface{} { return nil }

func (r *Replicator) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, r.sourceSite, r.destSite, r.inputStatus, r.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	dest := r.destPath(bundle)
	reference, err := r.provider.Put(ctx, bundle.BundlePath, dest, r.putTimeout)
	if err != nil {
		var dup *transport.DuplicateInFlightError
		if errors.As(err, &dup) {
			// A transfer for this path is already running; recover and wait
			// on the prior reference instead of starting a new one (spec
			// §4.5, §7.5, §8 scenario 3).
			reference = bundle.TransferReference
			if reference == "" {
				if err := unclaim(ctx, rc, bundle.UUID); err != nil {
					return worker.Outcome{}, err
				}
				return worker.Successful(), nil
			}
			if err := r.waitForCompletion(ctx, reference); err != nil {
				return worker.QuarantineBundleNow(bundle, fmt.Errorf("await in-flight transfer: %w", err)), nil
			}
		} else {
			return worker.QuarantineBundleNow(bundle, fmt.Errorf("transport put: %w", err)), nil
		}
	}

	err = patchSuccess(ctx, rc, bundle.UUID, r.outputStatus, map[string]interface{}{
		"transfer_reference":  reference,
		"transfer_dest_path":  dest,
		"update_timestamp":    cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}

func (r *Replicator) destPath(bundle *cmn.Bundle) string {
	name := filepath.Base(bundle.BundlePath)
	if r.fullPath {
		return path.Join(r.destRoot, bundle.Path, name)
	}
	return path.Join(r.destRoot, name)
}

func (r *Replicator) waitForCompletion(ctx context.Context, reference string) error {
	for {
		status, err := r.provider.Verify(ctx, reference)
		if err != nil {
			return err
		}
		switch status {
		case transport.VerifyOK:
			return nil
		case transport.VerifyFailed:
			return fmt.Errorf("in-flight transfer %s failed", reference)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
		}
	}
}
