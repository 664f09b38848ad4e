package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/transport"
	"github.com/WIPACrepo/lta/worker"
)

// Retriever reads a previously-taped bundle archive back from HPSS onto
// scratch disk, the mirror image of TapeStager. Grounded on
// original_source's nersc_retriever.py.
type Retriever struct {
	common
	hpss       *transport.HPSSProvider
	hpssRoot   string
	outputPath string
	getTimeout time.Duration
}

// NewRetriever builds a Retriever driving hpss.
func NewRetriever(hpss *transport.HPSSProvider) *Retriever {
	return &Retriever{hpss: hpss, getTimeout: 2 * time.Hour}
}

func (r *Retriever) ExpectedConfig() []string {
	return []string{"TAPE_BASE_PATH", "OUTPUT_PATH"}
}

func (r *Retriever) Configure(cfg config.Map) error {
	r.common = newCommon(cfg, cmn.GenUUID())
	r.hpssRoot = cfg["TAPE_BASE_PATH"]
	r.outputPath = cfg["OUTPUT_PATH"]
	return nil
}

func (r *Retriever) Status() map[string]interface{} { return nil }

func (r *Retriever) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, r.sourceSite, r.destSite, r.inputStatus, r.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	basename := filepath.Base(bundle.BundlePath)
	hpssPath := filepath.Join(r.hpssRoot, bundle.Path, basename)
	outputPath := filepath.Join(r.outputPath, basename)

	if err := r.hpss.Get(ctx, hpssPath, outputPath, r.getTimeout); err != nil {
		return worker.QuarantineBundleNow(bundle, fmt.Errorf("hpss get: %w", err)), nil
	}

	err = patchSuccess(ctx, rc, bundle.UUID, r.outputStatus, map[string]interface{}{
		"bundle_path":      outputPath,
		"update_timestamp": cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}
