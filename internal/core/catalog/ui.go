package catalog

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/Masterminds/semver/v3"

	"github.com/xlo-tools/xlo/internal/core/failure"
	"github.com/xlo-tools/xlo/internal/core/model"
)

var louiContainerRegex = regexp.MustCompile(`^LOUI_v(\d+)-(\d+)$`)

// UIAssets is the file listing of the newest UI runtime and the shared
// public assets.
type UIAssets struct {
	Container string
	Version   *semver.Version
	Files     []model.FileInfo
	Public    []model.FileInfo
}

// LouiVersion parses a container name of the form LOUI_v<major>-<minor>.
func LouiVersion(container string) (*semver.Version, bool) {
	m := louiContainerRegex.FindStringSubmatch(container)
	if m == nil {
		return nil, false
	}
	major, err := strconv.ParseUint(m[1], 10, 64)
	if err != nil {
		return nil, false
	}
	minor, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return nil, false
	}
	return semver.New(major, minor, 0, "", ""), true
}

// LatestLoui picks the container with the highest (major, minor) pair.
// Names that do not follow the LOUI pattern are ignored.
func LatestLoui(containers []string) (string, *semver.Version, error) {
	var (
		best    string
		bestVer *semver.Version
	)
	for _, name := range containers {
		v, ok := LouiVersion(name)
		if !ok {
			continue
		}
		if bestVer == nil || v.GreaterThan(bestVer) {
			best, bestVer = name, v
		}
	}
	if bestVer == nil {
		return "", nil, fmt.Errorf("no UI runtime container matching LOUI_v<major>-<minor>")
	}
	return best, bestVer, nil
}

// ListUIAssets lists the newest UI runtime build and the public assets.
func (c *Client) ListUIAssets(ctx context.Context) (*UIAssets, error) {
	var containers []struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, c.containersURL(), &containers); err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, "ui containers", err)
	}
	names := make([]string, 0, len(containers))
	for _, ct := range containers {
		names = append(names, ct.Name)
	}

	latest, version, err := LatestLoui(names)
	if err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, "ui containers", err)
	}

	files, err := c.fileList(ctx, c.containerFilesURL(latest))
	if err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, latest, err)
	}
	public, err := c.fileList(ctx, c.containerFilesURL(PublicContainer))
	if err != nil {
		return nil, failure.New(failure.ErrCatalogFetch, PublicContainer, err)
	}
	for i := range files {
		if files[i].Container == "" {
			files[i].Container = latest
		}
	}
	for i := range public {
		if public[i].Container == "" {
			public[i].Container = PublicContainer
		}
	}

	return &UIAssets{Container: latest, Version: version, Files: files, Public: public}, nil
}
