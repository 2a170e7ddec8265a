package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/urfave/cli/v2"

	"github.com/Epistemic-Technology/pdf-splitter/httpapi"
	"github.com/Epistemic-Technology/pdf-splitter/internal/apperr"
	"github.com/Epistemic-Technology/pdf-splitter/internal/storage"
	"github.com/Epistemic-Technology/pdf-splitter/models"
	"github.com/Epistemic-Technology/pdf-splitter/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Address to bind (overrides config)"},
			&cli.IntFlag{Name: "port", Usage: "Port to bind (overrides config and PORT)"},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	if host := c.String("host"); host != "" {
		rt.cfg.HTTP.Host = host
	}
	if port := c.Int("port"); port != 0 {
		rt.cfg.HTTP.Port = port
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.janitor.Start(ctx)

	handler := httpapi.NewHandler(rt.splitter, rt.cfg.BaseURL(), rt.cfg.HTTP.MaxUploadBytes, rt.log)
	rt.log.Info("Download links use base URL %s", rt.cfg.BaseURL())
	return httpapi.NewServer(rt.cfg.ListenAddr(), handler, rt.log).ListenAndServe(ctx)
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp",
		Usage:  "Run the MCP server on stdio",
		Action: mcpAction,
	}
}

func mcpAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt.janitor.Start(ctx)

	rt.log.Info("Starting pdf-splitter MCP server")
	srv := server.CreateServer(rt.splitter, rt.cfg.Zotero, rt.log)
	if err := srv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		rt.log.Error("Server failed: %v", err)
		return err
	}
	return nil
}

func splitCommand() *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Split a PDF once and print the manifest as JSON",
		ArgsUsage: " ",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "Direct URL or Google Drive share link"},
			&cli.StringFlag{Name: "file", Usage: "Local PDF file"},
			&cli.StringFlag{Name: "zotero-id", Usage: "Zotero attachment key"},
			&cli.StringFlag{Name: "ranges", Aliases: []string{"r"}, Usage: `Page ranges, e.g. "1-5,8,10-12"`, Required: true},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Also copy the parts into this directory under their download names"},
		},
		Action: splitAction,
	}
}

func splitAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	source := models.SourceInfo{
		URL:      c.String("url"),
		ZoteroID: c.String("zotero-id"),
	}
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cli.Exit(fmt.Sprintf("cannot read %s: %v", path, err), 1)
		}
		source.RawData = data
	}

	rt.janitor.Start(c.Context)

	manifest, err := rt.splitter.RunSplit(c.Context, source, c.String("ranges"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("%s: %s", apperr.KindOf(err), apperr.DetailOf(err)), 1)
	}

	if dir := c.String("out"); dir != "" {
		if err := exportParts(rt, manifest, dir); err != nil {
			return cli.Exit(err.Error(), 1)
		}
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(manifest)
}

// exportParts copies each stored part into dir under its friendly name.
func exportParts(rt *runtime, manifest *models.SplitManifest, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create %s: %w", dir, err)
	}
	for _, f := range manifest.Files {
		if err := copyPart(rt, f.Name, filepath.Join(dir, f.Filename)); err != nil {
			return err
		}
	}
	return nil
}

func copyPart(rt *runtime, name, dest string) error {
	rc, _, _, err := rt.splitter.Download(name)
	if err != nil {
		return fmt.Errorf("cannot open %s: %w", name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("cannot write %s: %w", dest, err)
	}
	return out.Close()
}

func sweepCommand() *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Remove split files older than the configured max age",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "max-age", Usage: "Override the configured max age"},
		},
		Action: sweepAction,
	}
}

func sweepAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	maxAge := rt.cfg.Storage.MaxFileAge
	if d := c.Duration("max-age"); d > 0 {
		maxAge = d
	}

	result, err := rt.store.Sweep(maxAge)
	if err != nil {
		return cli.Exit(fmt.Sprintf("sweep failed: %v", err), 1)
	}
	fmt.Fprintf(c.App.Writer, "scanned %d, removed %d, failed %d\n", result.Scanned, result.Removed, result.Failed)
	return nil
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "List stored split files",
		Flags:  []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Print JSON instead of a table"}},
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	rt, err := newRuntime(c)
	if err != nil {
		return err
	}
	defer rt.Close()

	artifacts, err := rt.store.List()
	if err != nil {
		return cli.Exit(fmt.Sprintf("list failed: %v", err), 1)
	}

	if c.Bool("json") {
		enc := json.NewEncoder(c.App.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(artifacts)
	}

	now := time.Now()
	tw := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRANGE\tSIZE\tAGE\tEXPIRES IN")
	for _, a := range artifacts {
		age := now.Sub(a.CreatedAt).Truncate(time.Second)
		expires := (rt.cfg.Storage.MaxFileAge - age).Truncate(time.Second)
		if expires < 0 {
			expires = 0
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%v\n", a.Name, storage.LabelOf(a.Name), a.Size, age, expires)
	}
	return tw.Flush()
}
