package list

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"

	"github.com/xlo-tools/xlo/internal/core/config"
	"github.com/xlo-tools/xlo/internal/core/lockfile"
)

// objectDisplayInfo holds what is shown for one packaged object.
type objectDisplayInfo struct {
	ID          string
	Product     string
	Files       int
	Archive     string
	ArchiveHash string
	Status      string
	Failures    []string
}

// NewListCommand returns the definition for the "list" command.
func NewListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "Displays the objects recorded by the last pack run and their status.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "Package directory"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
		},
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	dir := c.String("dir")
	w := c.App.Writer

	if _, err := os.Stat(filepath.Join(dir, config.PackageFileName)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cli.Exit(fmt.Sprintf("Error: %s not found. Run 'xlo init' first.", config.PackageFileName), 1)
		}
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	lf, err := lockfile.Load(dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error loading %s: %v", lockfile.LockfileName, err), 1)
	}

	noColor := c.Bool("no-color") || os.Getenv("NO_COLOR") != ""
	mk := func(attrs ...color.Attribute) func(a ...interface{}) string {
		col := color.New(attrs...)
		if noColor {
			col.DisableColor()
		}
		return col.SprintFunc()
	}
	headerColor := mk(color.FgMagenta, color.Bold, color.Underline)
	sectionColor := mk(color.FgCyan, color.Bold)
	idColor := mk(color.FgWhite)
	hashColor := mk(color.FgYellow)
	dimColor := mk(color.FgHiBlack)
	failColor := mk(color.FgRed)

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	runEnv := lf.RunEnv
	if runEnv == "" {
		runEnv = "never packed"
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", headerColor(abs), dimColor("("+runEnv+")"))
	if lf.UI != nil {
		_, _ = fmt.Fprintf(w, "%s %s (%d files)\n", sectionColor("ui:"), lf.UI.Container, len(lf.UI.Files))
	}
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintln(w, sectionColor("objects:"))
	keys := lf.Keys()
	if len(keys) == 0 {
		_, _ = fmt.Fprintf(w, "No objects recorded in %s.\n", lockfile.LockfileName)
		return nil
	}

	for _, key := range keys {
		info := describe(dir, key, lf)
		archive := info.Status
		if info.Archive != "" {
			archive = fmt.Sprintf("%s %s", info.Archive, hashColor(info.ArchiveHash))
			if info.Status != "" {
				archive += " " + failColor(info.Status)
			}
		}
		_, _ = fmt.Fprintf(w, "%s %s %s %s\n", idColor(info.ID), dimColor(info.Product), dimColor(fmt.Sprintf("%d files", info.Files)), archive)
		for _, f := range info.Failures {
			_, _ = fmt.Fprintf(w, "  %s\n", failColor(f))
		}
	}
	return nil
}

func describe(dir, key string, lf *lockfile.Lockfile) objectDisplayInfo {
	entry, _ := lf.Entry(key)
	info := objectDisplayInfo{
		ID:          key,
		Product:     entry.Product,
		Files:       len(entry.Files),
		Archive:     entry.Archive,
		ArchiveHash: entry.ArchiveHash,
		Failures:    entry.Failures,
	}
	if info.Product == "" {
		info.Product = "unknown"
	}
	switch {
	case entry.Archive == "":
		info.Status = "not archived"
	default:
		if _, err := os.Stat(filepath.Join(dir, entry.Archive)); err != nil {
			info.Status = "missing"
		}
	}
	return info
}
