package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/juicedata/godaemon"
	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/filepool"
	"github.com/nimbusfs/filepool/pkg/localfs"
)

// makeDaemon backgrounds the current process with a two-stage
// fork/log-redirect: the parent re-execs itself via godaemon and
// exits, the child redirects its output to logfile and carries on
// running the format+clean loop.
func makeDaemon(c *cli.Context) error {
	var attrs godaemon.DaemonAttr

	if godaemon.Stage() == 0 {
		logfile := c.String("log")
		var err error
		attrs.Stdout, err = os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			logger.Errorf("open log file %s: %s", logfile, err)
		}
	}
	_, _, err := godaemon.MakeDaemon(&attrs)
	return err
}

func daemonCmd(c *cli.Context) error {
	if c.Bool("background") {
		if err := makeDaemon(c); err != nil {
			return err
		}
	}

	runID := uuid.NewString()
	opt := buildOptions(c)
	opt.NeedClean = true
	if opt.BytesPerWrite == 0 {
		opt.BytesPerWrite = 1 << 20
	}

	p := filepool.New(localfs.New())
	if err := p.Init(opt); err != nil {
		return err
	}
	logger.Infof("daemon %s: pool opened at %s", runID, filepath.Clean(opt.FilePoolDir))

	p.StartCleaning()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("daemon %s: shutting down", runID)
	p.UnInitialize()
	return nil
}

func daemonFlags() *cli.Command {
	flags := append(poolFlags(),
		&cli.BoolFlag{Name: "background", Aliases: []string{"d"}, Usage: "fork to background"},
		&cli.StringFlag{Name: "log", Value: "/var/log/filepoolctl.log", Usage: "log file path when run with --background"},
	)
	return &cli.Command{
		Name:   "daemon",
		Usage:  "run the formatter and a long-lived cleaner side by side, until interrupted",
		Action: daemonCmd,
		Flags:  flags,
	}
}
