// Command xlo exports learning objects from the content API into standalone
// or SCORM packages.
package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xlo-tools/xlo/internal/cli/initcmd"
	"github.com/xlo-tools/xlo/internal/cli/list"
	"github.com/xlo-tools/xlo/internal/cli/pack"
	"github.com/xlo-tools/xlo/internal/cli/self"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

func main() {
	app := &cli.App{
		Name:    "xlo",
		Usage:   "Package learning objects for an LMS",
		Version: version,
		Action: func(c *cli.Context) error {
			_ = cli.ShowAppHelp(c)
			return nil
		},
		Commands: []*cli.Command{
			initcmd.NewInitCommand(),
			pack.NewPackCommand(),
			list.NewListCommand(),
			self.NewSelfCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
