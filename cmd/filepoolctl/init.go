package main

import (
	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/filepool"
	"github.com/nimbusfs/filepool/pkg/localfs"
)

// initCmd persists a fresh pool-meta record and creates the pool
// directory, the same groundwork a format tool does before FilePool
// ever opens the pool for business.
func initCmd(c *cli.Context) error {
	fs := localfs.New()
	poolDir := c.String("pool-dir")

	if !fs.DirExists(poolDir) {
		if err := fs.Mkdir(poolDir, 0755); err != nil {
			return err
		}
	}

	blockSize := c.Uint64("block-size")
	meta := filepool.PoolMeta{
		ChunkSize:    c.Uint64("chunk-size"),
		MetaPageSize: c.Uint64("meta-page-size"),
		HasBlockSize: blockSize > 0,
		BlockSize:    blockSize,
		FilePoolPath: poolDir,
	}

	if err := filepool.EncodeMeta(fs, meta, c.String("meta-path")); err != nil {
		return err
	}
	logger.Infof("initialized pool meta at %s for pool dir %s", c.String("meta-path"), poolDir)
	return nil
}

func initFlags() *cli.Command {
	return &cli.Command{
		Name:   "init",
		Usage:  "create a pool directory and persist its pool-meta record",
		Action: initCmd,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "pool-dir", Required: true, Usage: "directory to hold preallocated chunk files"},
			&cli.StringFlag{Name: "meta-path", Required: true, Usage: "path to write the pool-meta record"},
			&cli.Uint64Flag{Name: "chunk-size", Value: 16 << 20, Usage: "chunk data size in bytes"},
			&cli.Uint64Flag{Name: "meta-page-size", Value: 4 << 10, Usage: "chunk header size in bytes"},
			&cli.Uint64Flag{Name: "block-size", Usage: "device block alignment in bytes (0 = unset)"},
		},
	}
}
