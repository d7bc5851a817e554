package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/nimbusfs/filepool/pkg/diag"
)

type statusReport struct {
	State       interface{} `json:"state"`
	Format      interface{} `json:"format"`
	UptimeSec   float64     `json:"uptimeSeconds"`
	UserSeconds float64     `json:"userSeconds,omitempty"`
	SysSeconds  float64     `json:"systemSeconds,omitempty"`
}

func printJSON(v interface{}) {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Fatalf("json: %s", err)
	}
	fmt.Println(string(output))
}

func statusCmd(c *cli.Context) error {
	p, err := openPool(c)
	if err != nil {
		return err
	}
	defer p.UnInitialize()
	p.WaitFormatDone()

	report := &statusReport{
		State:     p.State(),
		Format:    p.FormatStat(),
		UptimeSec: diag.Uptime().Seconds(),
	}
	if c.Bool("rusage") {
		ru := diag.GetRusage()
		report.UserSeconds = ru.UserSeconds()
		report.SysSeconds = ru.SystemSeconds()
	}
	printJSON(report)
	return nil
}

func statusFlags() *cli.Command {
	flags := append(poolFlags(),
		&cli.BoolFlag{Name: "rusage", Usage: "include process CPU usage in the report"},
	)
	return &cli.Command{
		Name:   "status",
		Usage:  "print the pool's current counters as JSON",
		Action: statusCmd,
		Flags:  flags,
	}
}
