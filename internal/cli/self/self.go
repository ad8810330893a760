package self

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
	"github.com/urfave/cli/v2"
)

// DefaultRepo is the GitHub repository releases are fetched from.
const DefaultRepo = "xlo-tools/xlo"

// NewSelfCommand creates a new command for self-management.
func NewSelfCommand() *cli.Command {
	return &cli.Command{
		Name:  "self",
		Usage: "Manage the xlo CLI application itself",
		Subcommands: []*cli.Command{
			{
				Name:  "update",
				Usage: "Update xlo to the latest version",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Automatically confirm the update",
					},
					&cli.BoolFlag{
						Name:  "check",
						Usage: "Check for available updates without installing",
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "Custom GitHub update source as 'owner/repo' (e.g., '" + DefaultRepo + "')",
					},
					&cli.BoolFlag{
						Name:  "verbose",
						Usage: "Enable verbose output",
					},
				},
				Action: updateAction,
			},
		},
	}
}

// ParseVersion parses an application version with or without a leading "v".
func ParseVersion(v string) (*semver.Version, error) {
	parsed, err := semver.NewVersion(strings.TrimPrefix(strings.TrimSpace(v), "v"))
	if err != nil {
		return nil, fmt.Errorf("error parsing current version '%s': %w. Ensure version is like vX.Y.Z or X.Y.Z", v, err)
	}
	return parsed, nil
}

// RepoSlug validates a --source value, falling back to DefaultRepo.
func RepoSlug(source string) (string, error) {
	if source == "" {
		return DefaultRepo, nil
	}
	parts := strings.Split(source, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("invalid --source format. Expected 'owner/repo', got: %s", source)
	}
	return source, nil
}

func updateAction(c *cli.Context) error {
	w := c.App.Writer
	current := c.App.Version
	verbose := c.Bool("verbose")
	logf := func(format string, args ...interface{}) {
		if verbose {
			_, _ = fmt.Fprintf(w, format, args...)
		}
	}

	currentSemVer, err := ParseVersion(current)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logf("xlo current version: %s\n", currentSemVer)

	repoSlug, err := RepoSlug(c.String("source"))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	logf("Using GitHub source: %s\n", repoSlug)

	ghSource, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error creating GitHub source: %v", err), 1)
	}
	updater, err := selfupdate.NewUpdater(selfupdate.Config{Source: ghSource})
	if err != nil {
		return cli.Exit(fmt.Sprintf("Failed to initialize updater: %v", err), 1)
	}

	logf("Checking for latest version...\n")
	latest, found, err := updater.DetectLatest(c.Context, selfupdate.ParseSlug(repoSlug))
	if err != nil {
		return cli.Exit(fmt.Sprintf("Error detecting latest version: %v", err), 1)
	}
	if !found || !latest.GreaterThan(currentSemVer.String()) {
		_, _ = fmt.Fprintf(w, "Current version %s is already the latest.\n", current)
		return nil
	}
	logf("Latest version detected: %s (Release URL: %s)\n", latest.Version(), latest.URL)
	if latest.ReleaseNotes != "" {
		logf("Release Notes:\n%s\n", latest.ReleaseNotes)
	}

	_, _ = fmt.Fprintf(w, "New version available: %s (current: %s)\n", latest.Version(), current)
	if c.Bool("check") {
		return nil
	}
	if !c.Bool("yes") && !confirm(w, c.App.Reader) {
		_, _ = fmt.Fprintln(w, "Update cancelled.")
		return nil
	}

	execPath, err := os.Executable()
	if err != nil {
		return cli.Exit(fmt.Sprintf("Could not get executable path: %v", err), 1)
	}
	_, _ = fmt.Fprintf(w, "Updating to %s...\n", latest.Version())
	if err := updater.UpdateTo(c.Context, latest, execPath); err != nil {
		return cli.Exit(fmt.Sprintf("Failed to update: %v", err), 1)
	}
	_, _ = fmt.Fprintf(w, "Successfully updated to version %s.\n", latest.Version())
	return nil
}

func confirm(w io.Writer, r io.Reader) bool {
	_, _ = fmt.Fprint(w, "Do you want to update? (y/N): ")
	input, _ := bufio.NewReader(r).ReadString('\n')
	return strings.TrimSpace(strings.ToLower(input)) == "y"
}
