// Package manifest reads and writes the bundle sidecar manifest (spec §6):
// v2 (a single JSON object) and v3 (NDJSON: one bundle-description line
// followed by one line per contained file). Writers always produce v3;
// readers accept either, the way the teacher's cmn/jsp file format carries a
// version byte and dispatches to the matching decoder.
/*
 * Copyright (c) 2018-2026, The IceCube Collaboration, WIPAC. All rights reserved.
 */
package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pierrec/lz4/v3"

	"github.com/WIPACrepo/lta/cmn"
)

// lz4Suffix marks a manifest sidecar as lz4-frame compressed: large bundles
// can carry tens of thousands of file entries, and the NDJSON text
// compresses well (spec §6 names no required on-disk encoding for the
// sidecar beyond the two JSON shapes it must round-trip).
const lz4Suffix = ".lz4"

// FileEntry describes one archived file within a bundle.
type FileEntry struct {
	LogicalName string       `json:"logical_name"`
	FileSize    int64        `json:"file_size"`
	Checksum    cmn.Checksum `json:"checksum"`
	UUID        string       `json:"uuid"`
}

// Manifest is the bundle sidecar: a bundle description plus its file list.
type Manifest struct {
	BundleUUID string      `json:"uuid"`
	Files      []FileEntry `json:"files"`
}

// v2doc is the single-JSON-object format: the file list is embedded as a
// "files" array rather than trailing NDJSON lines.
type v2doc struct {
	BundleUUID string      `json:"uuid"`
	Files      []FileEntry `json:"files"`
}

// WritePath writes m to path in v3 (NDJSON) form: a header line describing
// the bundle, then one line per file (spec §6).
func WritePath(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest %s: %w", path, err)
	}
	defer f.Close()
	return Write(f, m)
}

// Write is WritePath without the file lifecycle, useful for tests and for
// writing to an in-progress archive stream.
func Write(w io.Writer, m Manifest) error {
	bw := bufio.NewWriter(w)
	header, err := cmn.Marshal(struct {
		UUID string `json:"uuid"`
	}{m.BundleUUID})
	if err != nil {
		return err
	}
	if _, err := bw.Write(header); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}
	for _, fe := range m.Files {
		line, err := cmn.Marshal(fe)
		if err != nil {
			return err
		}
		if _, err := bw.Write(line); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WritePathCompressed is WritePath, but the NDJSON body is framed through
// lz4 as it is written; ReadPathCompressed (or ReadPathAuto, given the .lz4
// suffix) decompresses it. ReadPath does not.
func WritePathCompressed(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest %s: %w", path, err)
	}
	defer f.Close()
	zw := lz4.NewWriter(f)
	if err := Write(zw, m); err != nil {
		return err
	}
	return zw.Close()
}

// ReadPathCompressed reads an lz4-framed manifest written by
// WritePathCompressed.
func ReadPathCompressed(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Read(lz4.NewReader(f))
}

// ReadPathAuto reads path, decompressing through lz4 first when its name
// carries the .lz4 suffix (as WritePathCompressed names it), otherwise
// reading it as plain NDJSON/v2 JSON.
func ReadPathAuto(path string) (Manifest, error) {
	if strings.HasSuffix(path, lz4Suffix) {
		return ReadPathCompressed(path)
	}
	return ReadPath(path)
}

// ReadPath reads the uncompressed manifest at path, accepting either v2
// (single JSON object with an embedded "files" array) or v3 (NDJSON) as
// Read does: v3 is tried first, v2 is the fallback.
func ReadPath(path string) (Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("open manifest %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses a manifest from r, trying v3 (NDJSON) first since writers
// always produce it, falling back to v2 (spec §6 compatibility requirement).
func Read(r io.Reader) (Manifest, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Manifest{}, err
	}
	if m, ok := tryReadV3(data); ok {
		return m, nil
	}
	return readV2(data)
}

func tryReadV3(data []byte) (Manifest, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return Manifest{}, false
	}
	var header struct {
		UUID  string      `json:"uuid"`
		Files []FileEntry `json:"files"`
	}
	if err := cmn.Unmarshal(scanner.Bytes(), &header); err != nil {
		return Manifest{}, false
	}
	if len(header.Files) > 0 {
		// This is actually a v2 single-object document; let readV2 handle it.
		return Manifest{}, false
	}
	if header.UUID == "" {
		return Manifest{}, false
	}

	m := Manifest{BundleUUID: header.UUID}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fe FileEntry
		if err := cmn.Unmarshal(line, &fe); err != nil {
			return Manifest{}, false
		}
		m.Files = append(m.Files, fe)
	}
	if err := scanner.Err(); err != nil {
		return Manifest{}, false
	}
	return m, true
}

func readV2(data []byte) (Manifest, error) {
	var doc v2doc
	if err := cmn.Unmarshal(data, &doc); err != nil {
		return Manifest{}, fmt.Errorf("manifest is neither valid v3 nor v2: %w", err)
	}
	return Manifest{BundleUUID: doc.BundleUUID, Files: doc.Files}, nil
}
