package filepool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/filepool/pkg/localfs"
)

func baseOptions(t *testing.T) PoolOptions {
	dir := t.TempDir()
	return PoolOptions{
		FilePoolDir:     filepath.Join(dir, "pool"),
		MetaPath:        filepath.Join(dir, "pool.meta"),
		MetaFileSize:    MetaPersistSize,
		FileSize:        1 << 20,
		MetaPageSize:    4 << 10,
		GetFileFromPool: true,
		FilePoolSize:    0,
		FormatThreadNum: 2,
		FormatInterval:  time.Millisecond,
		RetryTimes:      3,
	}
}

func TestScannerRejectsStrayFile(t *testing.T) {
	opt := baseOptions(t)
	require.NoError(t, os.MkdirAll(opt.FilePoolDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(opt.FilePoolDir, "abc"), []byte("x"), 0644))

	p := New(localfs.New())
	err := p.Init(opt)
	require.ErrorIs(t, err, ErrInconsistentPool)
}

func TestScannerRejectsWrongSize(t *testing.T) {
	opt := baseOptions(t)
	require.NoError(t, os.MkdirAll(opt.FilePoolDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(opt.FilePoolDir, "1"), []byte("short"), 0644))

	p := New(localfs.New())
	err := p.Init(opt)
	require.ErrorIs(t, err, ErrInconsistentPool)
}
