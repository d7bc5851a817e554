package main

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/nimbusfs/filepool/pkg/filepool"
)

// newFormatProgressBar builds a real bar on an interactive terminal
// and a discarded one otherwise, so piping filepoolctl's output never
// fills a log file with carriage returns.
func newFormatProgressBar(total int64, quiet bool) (*mpb.Progress, *mpb.Bar) {
	var progress *mpb.Progress
	if !quiet && isatty.IsTerminal(os.Stdout.Fd()) {
		progress = mpb.New(mpb.WithWidth(64))
	} else {
		progress = mpb.New(mpb.WithWidth(64), mpb.WithOutput(nil))
	}
	bar := progress.AddBar(total,
		mpb.PrependDecorators(
			decor.Name("format", decor.WCSyncWidth),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
	)
	return progress, bar
}

func formatCmd(c *cli.Context) error {
	p, err := openPool(c)
	if err != nil {
		return err
	}

	target := p.FormatStat().PreAllocateNum
	_, bar := newFormatProgressBar(int64(target), c.Bool("quiet"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			stat := p.FormatStat()
			bar.SetCurrent(int64(stat.AllocateChunkNum))
			if stat.AllocateChunkNum >= stat.PreAllocateNum {
				return
			}
			time.Sleep(100 * time.Millisecond)
		}
	}()

	p.WaitFormatDone()
	<-done
	bar.SetCurrent(int64(target))

	stat := p.FormatStat()
	if stat.IsWrong {
		return filepool.ErrInconsistentPool
	}
	logger.Infof("formatted %d/%d chunks", stat.AllocateChunkNum, stat.PreAllocateNum)
	return nil
}

func formatFlags() *cli.Command {
	return &cli.Command{
		Name:   "format",
		Usage:  "scan the pool directory and format new chunks up to the configured size",
		Action: formatCmd,
		Flags:  poolFlags(),
	}
}
