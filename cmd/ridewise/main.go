// Ridewise CLI - offline bike-rental demand predictions
//
// Usage:
//
//	ridewise predict --variant daily --daily-model daily.json --input record.json
//	ridewise extract --file report.txt [--variant hourly --hourly-model hourly.json]
//	ridewise token --secret s3cret --user 42 --ttl 24h
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newApp(os.Stdout, os.Stdin).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer, in io.Reader) *cli.App {
	return &cli.App{
		Name:    "ridewise",
		Usage:   "Bike-rental demand predictions from the command line",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
		Writer:  out,
		Reader:  in,

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},

		Commands: []*cli.Command{
			predictCommand(),
			extractCommand(),
			tokenCommand(),
		},
	}
}
