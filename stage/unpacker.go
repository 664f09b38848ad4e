package stage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/WIPACrepo/lta/catalog"
	"github.com/WIPACrepo/lta/client"
	"github.com/WIPACrepo/lta/cmn"
	"github.com/WIPACrepo/lta/config"
	"github.com/WIPACrepo/lta/manifest"
	"github.com/WIPACrepo/lta/worker"
)

// PathMap remaps a manifest's recorded logical_name prefixes onto a
// possibly different warehouse mount, the way unpacker.py's PATH_MAP_JSON
// config lets a file recalled at one site land under another's filesystem
// layout.
type PathMap map[string]string

func (m PathMap) rewrite(logicalName string) string {
	for prefix, remap := range m {
		if strings.HasPrefix(logicalName, prefix) {
			return remap + strings.TrimPrefix(logicalName, prefix)
		}
	}
	return logicalName
}

// Unpacker extracts a recalled bundle archive back into the data warehouse,
// validating each file's size and checksum against the bundle's manifest
// and registering the new warehouse location with the file catalog (spec
// §4.5, §8 scenario 6). Grounded on original_source's unpacker.py.
type Unpacker struct {
	common
	workboxPath string
	outboxPath  string
	pathMap     PathMap
	catalogRC   *catalog.Client
}

// NewUnpacker builds an Unpacker. pathMap may be nil to disable remapping.
func NewUnpacker(catalogRC *catalog.Client, pathMap PathMap) *Unpacker {
	return &Unpacker{catalogRC: catalogRC, pathMap: pathMap}
}

func (u *Unpacker) ExpectedConfig() []string {
	return []string{"UNPACKER_WORKBOX_PATH", "UNPACKER_OUTBOX_PATH"}
}

func (u *Unpacker) Configure(cfg config.Map) error {
	u.common = newCommon(cfg, cmn.GenUUID())
	u.workboxPath = cfg["UNPACKER_WORKBOX_PATH"]
	u.outboxPath = cfg["UNPACKER_OUTBOX_PATH"]
	return nil
}

func (u *Unpacker) Status() map[string]interface{} { return nil }

func (u *Unpacker) DoWorkClaim(ctx context.Context, rc *client.Client) (worker.Outcome, error) {
	bundle, err := rc.PopBundle(ctx, u.sourceSite, u.destSite, u.inputStatus, u.claimant())
	if err != nil {
		return worker.Outcome{}, err
	}
	if bundle == nil {
		return worker.NothingClaimed(), nil
	}

	if err := u.unpack(ctx, bundle); err != nil {
		return worker.QuarantineBundleNow(bundle, err), nil
	}

	err = patchSuccess(ctx, rc, bundle.UUID, u.outputStatus, map[string]interface{}{
		"update_timestamp": cmn.Now(),
	})
	if err != nil {
		return worker.Outcome{}, err
	}
	return worker.Successful(), nil
}

func (u *Unpacker) unpack(ctx context.Context, bundle *cmn.Bundle) error {
	archivePath := filepath.Join(u.workboxPath, bundle.UUID+".zip")
	if err := extractZip(archivePath, u.outboxPath); err != nil {
		return fmt.Errorf("extract %s: %w", archivePath, err)
	}

	m, err := u.readManifest(bundle.UUID)
	if err != nil {
		return err
	}

	for i, entry := range m.Files {
		diskPath := filepath.Join(u.outboxPath, filepath.Base(entry.LogicalName))
		info, err := os.Stat(diskPath)
		if err != nil {
			return fmt.Errorf("file %d/%d %s: %w", i+1, len(m.Files), diskPath, err)
		}
		if info.Size() != entry.FileSize {
			return fmt.Errorf("file %s size mismatch: calculated %d, expected %d", diskPath, info.Size(), entry.FileSize)
		}

		destPath := entry.LogicalName
		if u.pathMap != nil {
			destPath = u.pathMap.rewrite(destPath)
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		if err := os.Rename(diskPath, destPath); err != nil {
			return err
		}

		sum, err := sha512OfFile(destPath)
		if err != nil {
			return err
		}
		if sum != entry.Checksum.SHA512 {
			return fmt.Errorf("file %s sha512 mismatch: calculated %s, expected %s", destPath, sum, entry.Checksum.SHA512)
		}

		if u.catalogRC != nil {
			loc := catalog.Location{Site: u.destSite, Path: destPath, Online: true}
			if err := u.catalogRC.AddLocation(ctx, entry.UUID, loc); err != nil {
				return fmt.Errorf("register catalog location for %s: %w", destPath, err)
			}
		}
	}

	u.deleteManifest(bundle.UUID)
	return nil
}

// readManifest tries the v2 sidecar in the outbox first, then the v3
// sidecar in the workbox, matching unpacker.py's fallback order.
func (u *Unpacker) readManifest(bundleUUID string) (manifest.Manifest, error) {
	v2Path := filepath.Join(u.outboxPath, bundleUUID+".metadata.json")
	if m, err := manifest.ReadPathAuto(v2Path); err == nil {
		return m, nil
	}
	for _, name := range []string{bundleUUID + ".metadata.ndjson.lz4", bundleUUID + ".metadata.ndjson"} {
		m, err := manifest.ReadPathAuto(filepath.Join(u.workboxPath, name))
		if err == nil {
			return m, nil
		}
	}
	return manifest.Manifest{}, fmt.Errorf("unknown bundle manifest version for %s", bundleUUID)
}

func (u *Unpacker) deleteManifest(bundleUUID string) {
	_ = os.Remove(filepath.Join(u.outboxPath, bundleUUID+".metadata.json"))
	_ = os.Remove(filepath.Join(u.workboxPath, bundleUUID+".metadata.ndjson"))
	_ = os.Remove(filepath.Join(u.workboxPath, bundleUUID+".metadata.ndjson.lz4"))
}

// extractZip unpacks every entry in archivePath under destDir, guarding
// against zip-slip path escape.
func extractZip(archivePath, destDir string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return err
	}
	defer zr.Close()

	for _, f := range zr.File {
		target := filepath.Join(destDir, f.Name)
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("zip entry %s escapes destination directory", f.Name)
		}
		if err := extractZipEntry(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipEntry(f *zip.File, target string) error {
	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}
