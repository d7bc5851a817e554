package main

import (
	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/filepool"
	"github.com/nimbusfs/filepool/pkg/localfs"
)

// checkCmd validates the pool-meta record and the pool directory
// layout without formatting anything, useful as a preflight before a
// chunkserver starts up against an existing pool.
func checkCmd(c *cli.Context) error {
	opt := buildOptions(c)
	opt.FilePoolSize = 0
	opt.AllocatedByPercent = false

	p := filepool.New(localfs.New())
	if err := p.Init(opt); err != nil {
		return err
	}
	defer p.UnInitialize()
	p.WaitFormatDone()

	st := p.State()
	logger.Infof("pool OK: dirty=%d clean=%d preallocated=%d chunkNum=%d",
		st.DirtyLeft, st.CleanLeft, st.PreallocatedLeft, st.ChunkNum)
	return nil
}

func checkFlags() *cli.Command {
	return &cli.Command{
		Name:   "check",
		Usage:  "validate the pool-meta record and pool directory without formatting",
		Action: checkCmd,
		Flags:  poolFlags(),
	}
}
