package filepool

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/filepool/pkg/localfs"
)

func TestMetaRoundTrip(t *testing.T) {
	fs := localfs.New()
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "pool.meta")

	meta := PoolMeta{
		ChunkSize:    16 << 20,
		MetaPageSize: 4 << 10,
		HasBlockSize: true,
		BlockSize:    4096,
		FilePoolPath: filepath.Join(dir, "pool"),
	}

	require.NoError(t, EncodeMeta(fs, meta, metaPath))

	got, err := DecodeMeta(fs, metaPath, MetaPersistSize)
	require.NoError(t, err)
	require.Equal(t, meta, got)
}

func TestMetaDecodeFailsOnCorruption(t *testing.T) {
	fs := localfs.New()
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "pool.meta")

	meta := PoolMeta{
		ChunkSize:    16 << 20,
		MetaPageSize: 4 << 10,
		FilePoolPath: filepath.Join(dir, "pool"),
	}
	require.NoError(t, EncodeMeta(fs, meta, metaPath))

	raw, err := os.ReadFile(metaPath)
	require.NoError(t, err)
	require.Equal(t, MetaPersistSize, len(raw))

	// Flip a byte inside the chunkSize line, outside the CRC field.
	mutated := append([]byte(nil), raw...)
	mutated[2] ^= 0xFF
	require.NoError(t, os.WriteFile(metaPath, mutated, 0644))

	_, err = DecodeMeta(fs, metaPath, MetaPersistSize)
	require.ErrorIs(t, err, ErrCorruptMeta)
}

func TestMetaDecodeFailsOnMissingField(t *testing.T) {
	fs := localfs.New()
	dir := t.TempDir()
	metaPath := filepath.Join(dir, "pool.meta")

	// Hand-write a record missing the crc field entirely.
	record := make([]byte, MetaPersistSize)
	copy(record, "chunkSize: 100\nmetaPageSize: 10\nchunkfilepool_path: /tmp\n")
	require.NoError(t, os.WriteFile(metaPath, record, 0644))

	_, err := DecodeMeta(fs, metaPath, MetaPersistSize)
	require.ErrorIs(t, err, ErrCorruptMeta)
}
