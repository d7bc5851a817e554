// Command filepoolctl drives a pre-allocated chunk file pool from the
// command line: bring it up cold, watch it format, clean recycled
// chunks, and inspect its state, without wiring it into a full
// chunkserver process.
package main

import (
	"fmt"
	"os"

	"github.com/google/gops/agent"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/version"
	"github.com/nimbusfs/filepool/pkg/xlog"
)

var logger = xlog.GetLogger("filepoolctl")

func setLoggerLevel(c *cli.Context) {
	switch {
	case c.Bool("trace"):
		xlog.SetLevel(logrus.TraceLevel)
	case c.Bool("verbose"):
		xlog.SetLevel(logrus.DebugLevel)
	case c.Bool("quiet"):
		xlog.SetLevel(logrus.WarnLevel)
	default:
		xlog.SetLevel(logrus.InfoLevel)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug log"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only warning and error log"},
		&cli.BoolFlag{Name: "trace", Usage: "enable trace log"},
		&cli.BoolFlag{Name: "gops", Usage: "enable gops agent for live diagnostics"},
	}
}

func before(c *cli.Context) error {
	setLoggerLevel(c)
	if c.Bool("gops") {
		if err := agent.Listen(agent.Options{}); err != nil {
			logger.Warnf("gops agent: %s", err)
		}
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "filepoolctl",
		Usage:                "manage a pre-allocated chunk file pool",
		Version:              version.Version(),
		Flags:                globalFlags(),
		Before:               before,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			initFlags(),
			formatFlags(),
			cleanFlags(),
			statusFlags(),
			checkFlags(),
			daemonFlags(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
