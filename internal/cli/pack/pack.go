// Package pack implements `xlo pack`, which runs the packaging pipeline for
// the package directory.
package pack

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/xlo-tools/xlo/internal/core/assemble"
	"github.com/xlo-tools/xlo/internal/core/catalog"
	"github.com/xlo-tools/xlo/internal/core/config"
	"github.com/xlo-tools/xlo/internal/core/model"
	"github.com/xlo-tools/xlo/internal/core/progress"
	"github.com/xlo-tools/xlo/internal/core/publish"
)

// NewPackCommand returns the definition for the "pack" command.
func NewPackCommand() *cli.Command {
	return &cli.Command{
		Name:  "pack",
		Usage: "Download the package objects and build their SCORM archives",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "Package directory"},
			&cli.BoolFlag{
				Name:    "force",
				Aliases: []string{"f"},
				Usage:   "Re-download and rebuild everything, even outputs that already exist",
			},
			&cli.StringFlag{Name: "run-env", Usage: "Run environment: scorm2004, scorm1.2 or standalone"},
			&cli.StringFlag{Name: "password", Usage: "Content API password (defaults to $XLO_PASSWORD)"},
			&cli.IntFlag{Name: "concurrency", Usage: "Maximum parallel downloads (defaults to the config value)"},
			&cli.BoolFlag{Name: "no-publish", Usage: "Skip uploading archives even if publish is configured"},
			&cli.BoolFlag{Name: "no-color", Usage: "Disable colored output"},
			&cli.BoolFlag{Name: "verbose", Usage: "Enable verbose output"},
		},
		Action: packAction,
	}
}

func packAction(c *cli.Context) error {
	dir := c.String("dir")

	state, err := config.CheckDir(dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	if state != config.ReadyToPack {
		return cli.Exit(fmt.Sprintf("Error: %s is not ready to pack (%s). Run 'xlo init' first.", dir, state), 1)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error loading %s: %v", config.PackageFileName, err), 1)
	}

	env, err := runEnv(c.String("run-env"), cfg)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	password := c.String("password")
	if password == "" {
		password = cfg.Password
	}
	if password == "" {
		return cli.Exit("Error: no password given; pass --password or set XLO_PASSWORD", 1)
	}

	concurrency := cfg.Concurrency
	if n := c.Int("concurrency"); n > 0 {
		concurrency = n
	}

	rep := progress.New(progress.Options{
		Out:     c.App.Writer,
		Err:     c.App.ErrWriter,
		Verbose: c.Bool("verbose"),
		NoColor: c.Bool("no-color") || os.Getenv("NO_COLOR") != "",
	})
	rep.Debugf("packing %s for %s", dir, env)

	client, err := catalog.New(cfg.Host, cfg.ParsedTimeout())
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	if _, err := client.Login(c.Context, cfg.User, password); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	opts := assemble.Options{
		Root:        dir,
		Env:         env,
		Force:       c.Bool("force"),
		Concurrency: concurrency,
		ProductType: cfg.Package.ProductType,
		Contract:    cfg.Package.Contract,
		Filter:      cfg.Package.Filter,
	}
	if cfg.Publish.Enabled() && env.IsSCORM() && !c.Bool("no-publish") {
		store, err := publish.New(publish.Config{
			Endpoint:  cfg.Publish.Endpoint,
			Region:    cfg.Publish.Region,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			Bucket:    cfg.Publish.Bucket,
			Prefix:    cfg.Publish.Prefix,
			UseSSL:    cfg.Publish.UseSSL,
		})
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		opts.Uploader = store
	}

	report, err := assemble.New(client, opts, rep).Run(c.Context)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	rep.Summary(len(report.Objects), len(report.Failures))
	if units := assemble.UnitsWithFailures(report.Failures); len(units) > 0 {
		_, _ = fmt.Fprintf(c.App.ErrWriter, "Failed units: %s\n", strings.Join(units, ", "))
	}
	return nil
}

// runEnv resolves the run environment: the flag wins over the config, and
// SCORM 2004 is the default.
func runEnv(flag string, cfg *config.PackageConfig) (model.RunEnv, error) {
	if strings.TrimSpace(flag) != "" {
		return model.ParseRunEnv(flag)
	}
	if env, ok := cfg.DefaultRunEnv(); ok {
		return env, nil
	}
	if cfg.RunEnv != "" {
		return 0, errors.New("invalid runEnv in " + config.PackageFileName)
	}
	return model.SCORM2004, nil
}
