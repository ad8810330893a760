// Package initcmd implements `xlo init`, which writes xlo-package.yml into a
// package directory.
package initcmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/xlo-tools/xlo/internal/core/config"
	"github.com/xlo-tools/xlo/internal/core/model"
)

// NewInitCommand returns the definition for the "init" command.
func NewInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Initialize a package directory (creates " + config.PackageFileName + ")",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "Package directory"},
			&cli.StringFlag{Name: "host", Usage: "Content API host"},
			&cli.StringFlag{Name: "user", Usage: "Content API user name or email"},
			&cli.StringFlag{Name: "product", Usage: "Default product type (ao, vlo, dlo-clo)"},
			&cli.StringFlag{Name: "contract", Usage: "Contract recorded in the manifests"},
			&cli.StringFlag{Name: "filter", Usage: "Package filter as a JSON object"},
			&cli.StringFlag{Name: "run-env", Usage: "Default run environment (scorm2004, scorm1.2, standalone)"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Overwrite an existing configuration"},
		},
		Action: initAction,
	}
}

func initAction(c *cli.Context) error {
	dir := c.String("dir")
	state, err := config.CheckDir(dir)
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}

	cfg := &config.PackageConfig{
		Concurrency: config.DefaultConcurrency,
		Timeout:     config.DefaultTimeout,
	}
	switch state {
	case config.NoConfig:
	case config.NoPackage:
		existing, err := config.Read(dir)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error loading %s: %v", config.PackageFileName, err), 1)
		}
		cfg = existing
	default:
		if !c.Bool("force") {
			return cli.Exit(fmt.Sprintf("Error: %s is %s; use --force to overwrite %s", dir, state, config.PackageFileName), 1)
		}
	}

	if v := strings.TrimSpace(c.String("host")); v != "" {
		cfg.Host = v
	}
	if v := strings.TrimSpace(c.String("user")); v != "" {
		cfg.User = v
	}
	if v := strings.TrimSpace(c.String("run-env")); v != "" {
		env, err := model.ParseRunEnv(v)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
		}
		cfg.RunEnv = env.String()
	}

	if product := strings.ToLower(strings.TrimSpace(c.String("product"))); product != "" {
		spec := &config.PackageSpec{
			ProductType: product,
			Contract:    strings.TrimSpace(c.String("contract")),
		}
		if raw := strings.TrimSpace(c.String("filter")); raw != "" {
			if err := json.Unmarshal([]byte(raw), &spec.Filter); err != nil {
				return cli.Exit(fmt.Sprintf("Error: --filter must be a JSON object: %v", err), 1)
			}
		}
		cfg.Package = spec
	}

	if err := config.Validate(cfg); err != nil {
		return cli.Exit(fmt.Sprintf("Error: %v", err), 1)
	}
	if err := config.Write(dir, cfg); err != nil {
		return cli.Exit(fmt.Sprintf("Error writing %s: %v", config.PackageFileName, err), 1)
	}

	_, _ = fmt.Fprintf(c.App.Writer, "Wrote %s\n", config.PackageFileName)
	if cfg.Package == nil {
		_, _ = fmt.Fprintln(c.App.Writer, "No package defined yet; rerun with --product to make the directory ready to pack.")
	}
	return nil
}
