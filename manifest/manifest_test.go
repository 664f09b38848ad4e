package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/WIPACrepo/lta/cmn"
)

func sample() Manifest {
	return Manifest{
		BundleUUID: "bundle-uuid",
		Files: []FileEntry{
			{LogicalName: "/data/exp/a.i3", FileSize: 100, Checksum: cmn.Checksum{SHA512: "aaa"}, UUID: "file-1"},
			{LogicalName: "/data/exp/b.i3", FileSize: 200, Checksum: cmn.Checksum{SHA512: "bbb"}, UUID: "file-2"},
		},
	}
}

func TestWriteReadRoundTripV3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.metadata.ndjson")
	m := sample()

	require.NoError(t, WritePath(path, m))

	got, err := ReadPath(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestReadFallsBackToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.metadata.json")
	doc := v2doc{BundleUUID: "bundle-uuid", Files: sample().Files}
	data, err := cmn.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	got, err := ReadPath(path)
	require.NoError(t, err)
	assert.Equal(t, sample().BundleUUID, got.BundleUUID)
	assert.Equal(t, sample().Files, got.Files)
}

func TestCompressedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.metadata.ndjson.lz4")
	m := sample()

	require.NoError(t, WritePathCompressed(path, m))

	got, err := ReadPathCompressed(path)
	require.NoError(t, err)
	assert.Equal(t, m, got)

	gotAuto, err := ReadPathAuto(path)
	require.NoError(t, err)
	assert.Equal(t, m, gotAuto)
}
