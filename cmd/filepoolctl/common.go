package main

import (
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/filepool"
	"github.com/nimbusfs/filepool/pkg/localfs"
)

func poolFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "pool-dir", Required: true, Usage: "directory holding preallocated chunk files"},
		&cli.StringFlag{Name: "meta-path", Required: true, Usage: "path of the persisted pool-meta file"},
		&cli.Uint64Flag{Name: "chunk-size", Value: 16 << 20, Usage: "chunk data size in bytes"},
		&cli.Uint64Flag{Name: "meta-page-size", Value: 4 << 10, Usage: "chunk header size in bytes"},
		&cli.Uint64Flag{Name: "block-size", Usage: "device block alignment in bytes (0 = unset)"},
		&cli.Uint64Flag{Name: "pool-size", Usage: "total bytes the pool should preallocate"},
		&cli.BoolFlag{Name: "by-percent", Usage: "size the pool as a percentage of total disk space instead of pool-size"},
		&cli.Uint64Flag{Name: "percent", Value: 80, Usage: "percentage of total disk space to use with --by-percent"},
		&cli.UintFlag{Name: "format-threads", Value: 2, Usage: "parallelism of the initial format"},
		&cli.DurationFlag{Name: "format-interval", Value: time.Millisecond, Usage: "pacing between format-worker allocations"},
		&cli.BoolFlag{Name: "need-clean", Usage: "run the background cleaner"},
		&cli.UintFlag{Name: "bytes-per-write", Value: 1 << 20, Usage: "cleaner write chunk size in bytes, must be 4K-aligned"},
		&cli.Int64Flag{Name: "iops-clean", Value: 0, Usage: "cleaner write rate in ops/sec, 0 disables throttling"},
		&cli.IntFlag{Name: "retry-times", Value: 3, Usage: "GetFile retry budget"},
		&cli.Uint64Flag{Name: "chunk-reserved", Usage: "EnoughChunk threshold"},
		&cli.StringFlag{Name: "copyset-dir", Usage: "copyset directory scanned at startup to seed chunkNum"},
		&cli.StringFlag{Name: "recycle-dir", Usage: "recycle bin directory scanned at startup to seed chunkNum"},
	}
}

func buildOptions(c *cli.Context) filepool.PoolOptions {
	return filepool.PoolOptions{
		FilePoolDir:        c.String("pool-dir"),
		MetaPath:           c.String("meta-path"),
		MetaFileSize:       filepool.MetaPersistSize,
		FileSize:           c.Uint64("chunk-size"),
		MetaPageSize:       c.Uint64("meta-page-size"),
		BlockSize:          c.Uint64("block-size"),
		HasBlockSize:       c.Uint64("block-size") > 0,
		GetFileFromPool:    true,
		FilePoolSize:       c.Uint64("pool-size"),
		AllocatedByPercent: c.Bool("by-percent"),
		AllocatedPercent:   c.Uint64("percent"),
		FormatThreadNum:    uint32(c.Uint("format-threads")),
		FormatInterval:     c.Duration("format-interval"),
		NeedClean:          c.Bool("need-clean"),
		BytesPerWrite:      uint32(c.Uint("bytes-per-write")),
		Iops4Clean:         c.Int64("iops-clean"),
		RetryTimes:         c.Int("retry-times"),
		ChunkReserved:      c.Uint64("chunk-reserved"),
		CopysetDir:         c.String("copyset-dir"),
		RecycleDir:         c.String("recycle-dir"),
	}
}

func openPool(c *cli.Context) (*filepool.Pool, error) {
	p := filepool.New(localfs.New())
	if err := p.Init(buildOptions(c)); err != nil {
		return nil, err
	}
	return p, nil
}
