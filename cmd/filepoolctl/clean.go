package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/filepool"
	"github.com/nimbusfs/filepool/pkg/localfs"
)

func cleanCmd(c *cli.Context) error {
	opt := buildOptions(c)
	opt.NeedClean = true
	if opt.BytesPerWrite == 0 {
		opt.BytesPerWrite = 1 << 20
	}

	p := filepool.New(localfs.New())
	if err := p.Init(opt); err != nil {
		return err
	}
	defer p.UnInitialize()
	p.WaitFormatDone()

	p.StartCleaning()
	logger.Infof("cleaner running, dirty=%d clean=%d", p.State().DirtyLeft, p.State().CleanLeft)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if d := c.Duration("for"); d > 0 {
		select {
		case <-time.After(d):
		case <-sigCh:
		}
	} else {
		<-sigCh
	}

	p.StopCleaning()
	logger.Infof("cleaner stopped, dirty=%d clean=%d", p.State().DirtyLeft, p.State().CleanLeft)
	return nil
}

func cleanFlags() *cli.Command {
	flags := append(poolFlags(),
		&cli.DurationFlag{Name: "for", Usage: "run the cleaner for this long, then stop; 0 runs until interrupted"},
	)
	return &cli.Command{
		Name:   "clean",
		Usage:  "run the background cleaner, re-zeroing recycled chunks",
		Action: cleanCmd,
		Flags:  flags,
	}
}
