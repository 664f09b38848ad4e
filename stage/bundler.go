package stage

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/manifest"
	"github.com/WIPACrepo/lta/worker"
)

// Bundler claims specified Bundles and archives their warehouse files into a
// single ZIP plus a v3 NDJSON sidecar manifest (spec §4.5, §6).
type Bundler struct {
	common
	workPath           string
	compressManifest   bool
}

func NewBundler() *Bundler { return &Bundler{} }

func (b *Bundler) ExpectedConfig() []string { return []string{"OUTPUT_PATH"} }

func (b *Bundler) Configure(cfg config.Map) error {
	b.common = newCommon(cfg, cmn.GenUUID())
	b.workPath = cfg["OUTPUT_PATH"]
	b.compressManifest = cfg.Bool("MANIFEST_COMPRESS")
	return nil
}

func (b *Bundler) Status() map[string]interface{} { return nil }

func (b *Bundler) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, b.sourceSite, b.destSite, b.inputStatus, b.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	bundlePath := filepath.Join(b.workPath, bundle.UUID+".zip")
	manifestName := bundle.UUID + ".metadata.ndjson"
	if b.compressManifest {
		manifestName += ".lz4"
	}
	manifestPath := filepath.Join(b.workPath, manifestName)

	size, sum, err := b.archive(ctx, rc, bundle, bundlePath, manifestPath)
	if err != nil {
		return worker.QuarantineBundleNow(bundle, fmt.Errorf("bundle archive: %w", err)), nil
	}

	err = patchSuccess(ctx, rc, bundle.UUID, b.outputStatus, map[string]interface{}{
		"bundle_path":      bundlePath,
		"size":             size,
		"checksum":         cmn.Checksum{SHA512: sum},
		"update_timestamp": cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}

// archive walks the bundle's Metadata rows, resolves each to its warehouse
// path under bundle.Path, writes it into a ZIP at bundlePath, and writes a
// matching v3 manifest at manifestPath, returning the archive's total size
// and SHA-512.
func (b *Bundler) archive(ctx context.Context, rc *client.Client, bundle *cmn.Bundle, bundlePath, manifestPath string) (int64, string, error) {
	mdRows, err := rc.ListMetadataPage(ctx, bundle.UUID, 0)
	if err != nil {
		return 0, "", err
	}

	zf, err := os.Create(bundlePath)
	if err != nil {
		return 0, "", err
	}
	defer zf.Close()
	zw := zip.NewWriter(zf)

	m := manifest.Manifest{BundleUUID: bundle.UUID}
	for _, md := range mdRows {
		logicalName := md.FileCatalogUUID
		srcPath := filepath.Join(bundle.Path, logicalName)
		entry, err := b.addFile(zw, srcPath, logicalName)
		if err != nil {
			zw.Close()
			return 0, "", err
		}
		entry.UUID = md.UUID
		m.Files = append(m.Files, entry)
	}
	if err := zw.Close(); err != nil {
		return 0, "", err
	}

	writeManifest := manifest.WritePath
	if b.compressManifest {
		writeManifest = manifest.WritePathCompressed
	}
	if err := writeManifest(manifestPath, m); err != nil {
		return 0, "", err
	}

	info, err := zf.Stat()
	if err != nil {
		return 0, "", err
	}
	sum, err := sha512OfFile(bundlePath)
	if err != nil {
		return 0, "", err
	}
	return info.Size(), sum, nil
}

func (b *Bundler) addFile(zw *zip.Writer, srcPath, logicalName string) (manifest.FileEntry, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return manifest.FileEntry{}, err
	}
	defer src.Close()
	info, err := src.Stat()
	if err != nil {
		return manifest.FileEntry{}, err
	}

	w, err := zw.Create(logicalName)
	if err != nil {
		return manifest.FileEntry{}, err
	}

	h := sha512.New()
	if _, err := io.Copy(io.MultiWriter(w, h), src); err != nil {
		return manifest.FileEntry{}, err
	}

	return manifest.FileEntry{
		LogicalName: logicalName,
		FileSize:    info.Size(),
		Checksum:    cmn.Checksum{SHA512: hex.EncodeToString(h.Sum(nil))},
	}, nil
}

func sha512OfFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha512.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
