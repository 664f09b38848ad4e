package stage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/WIPACrepo/lta/catalog"
	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/transport"
	"github.com/WIPACrepo/lta/worker"
)

// catalogFanout bounds how many Metadata rows within one page are resolved
// against the file catalog concurrently (mirrors fs/mpather's jogger pool).
const catalogFanout = 8

// metadataPageSize bounds each catalog-registration pass over a bundle's
// Metadata rows (spec §4.5's "pages of 1000").
const metadataPageSize = 1000

// Verifier confirms a bundle archive survived its transport unmodified,
// then registers it (and every file it contains) with the external file
// catalog before it can be deleted. One Verifier serves any transport: a
// local-disk move supplies no provider and this hashes the staged file
// directly; an HPSS destination supplies transport.HPSSProvider and this
// defers to its hashlist/hashverify pass instead. Grounded on
// original_source's site_move_verifier.py (local hash compare) and
// nersc_verifier.py (HPSS hash compare + catalog registration loop).
type Verifier struct {
	common
	provider   transport.Provider // nil: verify by hashing destPath locally
	destPath   string             // directory (or HPSS root) holding the staged archive
	fullPath   bool
	catalogRC  *catalog.Client
	archiveLoc bool // true: register catalog locations with "archive": true (tape); false: "online": true (disk)
}

// NewVerifier builds a Verifier. provider may be nil for a plain local-disk
// checksum comparison.
func NewVerifier(provider transport.Provider, catalogRC *catalog.Client) *Verifier {
	return &Verifier{provider: provider, catalogRC: catalogRC}
}

func (v *Verifier) ExpectedConfig() []string {
	return []string{"DEST_ROOT_PATH"}
}

func (v *Verifier) Configure(cfg config.Map) error {
	v.common = newCommon(cfg, cmn.GenUUID())
	v.destPath = cfg["DEST_ROOT_PATH"]
	v.fullPath = cfg.Bool("DEST_ROOT_FULL_PATH")
	v.archiveLoc = cfg.Bool("VERIFIER_ARCHIVE_LOCATION")
	return nil
}

func (v *Verifier) Status() map[string]interface{} { return nil }

func (v *Verifier) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, v.sourceSite, v.destSite, v.inputStatus, v.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	stagedPath := v.stagedPath(bundle)
	if err := v.verifyChecksum(ctx, bundle, stagedPath); err != nil {
		return worker.QuarantineBundleNow(bundle, err), nil
	}

	if v.catalogRC != nil {
		if err := v.registerCatalog(ctx, rc, bundle, stagedPath); err != nil {
			return worker.QuarantineBundleNow(bundle, fmt.Errorf("catalog registration: %w", err)), nil
		}
	}

	err = patchSuccess(ctx, rc, bundle.UUID, v.outputStatus, map[string]interface{}{
		"update_timestamp": cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}

func (v *Verifier) stagedPath(bundle *cmn.Bundle) string {
	name := filepath.Base(bundle.BundlePath)
	if v.fullPath {
		return filepath.Join(v.destPath, bundle.Path, name)
	}
	return filepath.Join(v.destPath, name)
}

func (v *Verifier) verifyChecksum(ctx context.Context, bundle *cmn.Bundle, stagedPath string) error {
	var sum string
	var err error
	if v.provider != nil {
		sum, err = v.provider.Checksum(ctx, stagedPath)
	} else {
		sum, err = sha512OfFile(stagedPath)
	}
	if err != nil {
		return fmt.Errorf("compute checksum: %w", err)
	}
	if sum != bundle.Checksum.SHA512 {
		return fmt.Errorf("checksum mismatch: created %s, destination %s", bundle.Checksum.SHA512, sum)
	}
	return nil
}

// registerCatalog mirrors nersc_verifier.py's catalog pass: one record for
// the bundle archive itself, then one new location per constituent file
// (found via the bundle's Metadata rows), deleting each Metadata row only
// once its file has a registered location and raising hard if the LTA DB
// reports deleting fewer rows than it handed out ("BAD MOJO").
func (v *Verifier) registerCatalog(ctx context.Context, rc *client.Client, bundle *cmn.Bundle, stagedPath string) error {
	loc := catalog.Location{Site: v.destSite, Path: stagedPath, Archive: v.archiveLoc, Online: !v.archiveLoc}
	bundleRecord := catalog.FileRecord{
		UUID:        bundle.UUID,
		LogicalName: stagedPath,
		Checksum:    map[string]string{"sha512": bundle.Checksum.SHA512},
		Locations:   []catalog.Location{loc},
		FileSize:    bundle.Size,
		LTA:         map[string]interface{}{"date_archived": cmn.Now()},
	}
	if err := v.catalogRC.CreateOrUpdateFile(ctx, bundleRecord); err != nil {
		return err
	}

	for {
		rows, err := rc.ListMetadataPage(ctx, bundle.UUID, metadataPageSize)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}

		uuids, err := v.registerPage(ctx, rows, stagedPath)
		if err != nil {
			return err
		}

		count, err := rc.BulkDeleteMetadata(ctx, uuids)
		if err != nil {
			return err
		}
		if count != len(uuids) {
			return fmt.Errorf("LTA DB gave us %d records to process, but we only deleted %d records! BAD MOJO!", len(uuids), count)
		}
	}
}

// registerPage resolves one page of Metadata rows against the file catalog
// and registers the bundle's new location for each, up to catalogFanout at
// a time, returning the uuids that are now safe to delete.
func (v *Verifier) registerPage(ctx context.Context, rows []*cmn.Metadata, stagedPath string) ([]string, error) {
	var (
		mu    sync.Mutex
		uuids []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(catalogFanout)

	for _, md := range rows {
		md := md
		g.Go(func() error {
			fc, err := v.catalogRC.GetFile(gctx, md.FileCatalogUUID)
			if err != nil {
				return err
			}
			fileLoc := catalog.Location{
				Site:    v.destSite,
				Path:    stagedPath + ":" + fc.LogicalName,
				Archive: v.archiveLoc,
				Online:  !v.archiveLoc,
			}
			if err := v.catalogRC.AddLocation(gctx, md.FileCatalogUUID, fileLoc); err != nil {
				return err
			}
			mu.Lock()
			uuids = append(uuids, md.UUID)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uuids, nil
}
