// Package main provides the pdf-splitter entrypoint.
//
// Usage:
//
//	pdf-splitter [--config FILE] <command> [options]
//
// Commands:
//   - serve: run the HTTP API
//   - mcp:   run the MCP server on stdio
//   - split: split a local file or URL once and print the manifest
//   - sweep: evict expired split files
//   - list:  show split files currently stored
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Epistemic-Technology/pdf-splitter/server"
)

func main() {
	app := newApp()
	app.ExitErrHandler = exitErrHandler

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "pdf-splitter",
		Usage:   "Split PDFs into page ranges and serve the parts for a limited time",
		Version: server.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML config file",
				EnvVars: []string{"PDF_SPLITTER_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level: debug, info, warn, error",
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			mcpCommand(),
			splitCommand(),
			sweepCommand(),
			listCommand(),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit and prints everything
// else as a plain error.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
