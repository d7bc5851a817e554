package filepool

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nimbusfs/filepool/pkg/localfs"
)

// scenario 1: cold init, no meta file.
func TestColdInitFormatsTargetCount(t *testing.T) {
	dir := t.TempDir()
	poolDir := filepath.Join(dir, "pool")

	opt := PoolOptions{
		FilePoolDir:     poolDir,
		MetaPath:        filepath.Join(dir, "pool.meta"),
		MetaFileSize:    MetaPersistSize,
		FileSize:        64 << 10, // keep the test fast; ratio to FilePoolSize matches scenario 1 (4x fileSize+meta)
		MetaPageSize:    4 << 10,
		GetFileFromPool: true,
		FilePoolSize:    4 * (64<<10 + MetaPersistSize),
		FormatThreadNum: 2,
		FormatInterval:  time.Millisecond,
		RetryTimes:      3,
	}

	p := New(localfs.New())
	require.NoError(t, p.Init(opt))
	p.WaitFormatDone()

	entries, err := os.ReadDir(poolDir)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		require.True(t, filepath.Ext(e.Name()) == cleanChunkSuffix)
		info, err := e.Info()
		require.NoError(t, err)
		require.EqualValues(t, opt.FileSize+opt.MetaPageSize, info.Size())

		data, err := os.ReadFile(filepath.Join(poolDir, e.Name()))
		require.NoError(t, err)
		for _, b := range data {
			require.Zero(t, b)
		}
	}

	st := p.State()
	require.EqualValues(t, 4, st.CleanLeft)
	require.EqualValues(t, 0, st.DirtyLeft)
	require.EqualValues(t, 4, st.PreallocatedLeft)
}

// scenario 2: warm init from a meta file whose geometry overrides the
// caller's config.
func TestWarmInitOverridesFromMeta(t *testing.T) {
	dir := t.TempDir()
	poolDir := filepath.Join(dir, "pool")
	metaPath := filepath.Join(dir, "pool.meta")

	require.NoError(t, os.MkdirAll(poolDir, 0755))
	fs := localfs.New()
	require.NoError(t, EncodeMeta(fs, PoolMeta{
		ChunkSize:    16 << 20,
		MetaPageSize: 4 << 10,
		FilePoolPath: poolDir,
	}, metaPath))

	opt := PoolOptions{
		FilePoolDir:     poolDir,
		MetaPath:        metaPath,
		MetaFileSize:    MetaPersistSize,
		FileSize:        8 << 20, // deliberately wrong; meta wins
		MetaPageSize:    4 << 10,
		GetFileFromPool: true,
		FilePoolSize:    0, // no-op format
		FormatThreadNum: 1,
		FormatInterval:  time.Millisecond,
		RetryTimes:      3,
	}

	p := New(fs)
	require.NoError(t, p.Init(opt))
	p.WaitFormatDone()

	require.EqualValues(t, 16<<20, p.opt.FileSize)
	st := p.State()
	require.EqualValues(t, 16<<20, st.ChunkSize)
}

// scenario 3: acquire, write, recycle, re-acquire clean.
func TestAcquireRecycleReacquireClean(t *testing.T) {
	dir := t.TempDir()
	poolDir := filepath.Join(dir, "pool")

	opt := PoolOptions{
		FilePoolDir:     poolDir,
		MetaPath:        filepath.Join(dir, "pool.meta"),
		MetaFileSize:    MetaPersistSize,
		FileSize:        64 << 10,
		MetaPageSize:    4 << 10,
		GetFileFromPool: true,
		FilePoolSize:    2 * (64<<10 + MetaPersistSize),
		FormatThreadNum: 1,
		FormatInterval:  time.Millisecond,
		RetryTimes:      3,
		NeedClean:       true,
		BytesPerWrite:   4096,
		Iops4Clean:      1 << 20,
	}

	p := New(localfs.New())
	require.NoError(t, p.Init(opt))
	p.WaitFormatDone()

	metaPage := make([]byte, opt.MetaPageSize)
	for i := range metaPage {
		metaPage[i] = 0xAB
	}

	targetT := filepath.Join(dir, "T")
	require.NoError(t, p.GetFile(targetT, metaPage, false))
	require.FileExists(t, targetT)

	before := p.Size()
	require.NoError(t, p.RecycleFile(targetT))
	require.NoFileExists(t, targetT)
	require.Equal(t, before+1, p.Size())
	require.EqualValues(t, 1, p.State().DirtyLeft)

	p.StartCleaning()
	require.Eventually(t, func() bool {
		return p.State().CleanLeft >= 2
	}, 2*time.Second, 5*time.Millisecond)
	p.StopCleaning()

	targetU := filepath.Join(dir, "U")
	require.NoError(t, p.GetFile(targetU, metaPage, true))

	data, err := os.ReadFile(targetU)
	require.NoError(t, err)
	require.Equal(t, metaPage, data[:opt.MetaPageSize])
	for _, b := range data[opt.MetaPageSize:] {
		require.Zero(t, b)
	}
}

// scenario 4: target already exists.
func TestGetFileAlreadyExists(t *testing.T) {
	dir := t.TempDir()
	poolDir := filepath.Join(dir, "pool")

	opt := PoolOptions{
		FilePoolDir:     poolDir,
		MetaPath:        filepath.Join(dir, "pool.meta"),
		MetaFileSize:    MetaPersistSize,
		FileSize:        64 << 10,
		MetaPageSize:    4 << 10,
		GetFileFromPool: true,
		FilePoolSize:    2 * (64<<10 + MetaPersistSize),
		FormatThreadNum: 1,
		FormatInterval:  time.Millisecond,
		RetryTimes:      3,
	}

	p := New(localfs.New())
	require.NoError(t, p.Init(opt))
	p.WaitFormatDone()

	target := filepath.Join(dir, "T")
	require.NoError(t, os.WriteFile(target, []byte("preexisting"), 0644))

	before := p.Size()
	metaPage := make([]byte, opt.MetaPageSize)
	err := p.GetFile(target, metaPage, false)
	require.ErrorIs(t, err, ErrAlreadyExists)
	require.Equal(t, before-1, p.Size())
}

func TestConcurrentGetFileSameTargetExactlyOneWins(t *testing.T) {
	dir := t.TempDir()
	poolDir := filepath.Join(dir, "pool")

	opt := PoolOptions{
		FilePoolDir:     poolDir,
		MetaPath:        filepath.Join(dir, "pool.meta"),
		MetaFileSize:    MetaPersistSize,
		FileSize:        64 << 10,
		MetaPageSize:    4 << 10,
		GetFileFromPool: true,
		FilePoolSize:    4 * (64<<10 + MetaPersistSize),
		FormatThreadNum: 2,
		FormatInterval:  time.Millisecond,
		RetryTimes:      1,
	}

	p := New(localfs.New())
	require.NoError(t, p.Init(opt))
	p.WaitFormatDone()

	target := filepath.Join(dir, "T")
	metaPage := make([]byte, opt.MetaPageSize)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- p.GetFile(target, metaPage, false)
		}()
	}

	var successes, conflicts int
	for i := 0; i < 2; i++ {
		switch err := <-results; {
		case err == nil:
			successes++
		case err == ErrAlreadyExists:
			conflicts++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, conflicts)
}
