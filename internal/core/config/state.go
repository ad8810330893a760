package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DirState describes how far a package directory has been set up.
type DirState int

const (
	NoConfig DirState = iota + 1
	NoPackage
	ReadyToPack
	InvalidDir
)

func (s DirState) String() string {
	switch s {
	case NoConfig:
		return "no config"
	case NoPackage:
		return "no package"
	case ReadyToPack:
		return "ready to pack"
	case InvalidDir:
		return "invalid directory"
	}
	return fmt.Sprintf("DirState(%d)", int(s))
}

// CheckDir inspects dirPath. An empty directory has no config; a directory
// with xlo-package.yml is ready once both user and package are present; any
// other non-empty directory is not a package directory.
func CheckDir(dirPath string) (DirState, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read directory %s: %w", dirPath, err)
	}

	hasConfig := false
	for _, e := range entries {
		if e.Name() == PackageFileName {
			hasConfig = true
			break
		}
	}
	if !hasConfig {
		if len(entries) == 0 {
			return NoConfig, nil
		}
		return InvalidDir, nil
	}

	data, err := os.ReadFile(filepath.Join(dirPath, PackageFileName))
	if err != nil {
		return 0, err
	}
	var cfg PackageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return 0, fmt.Errorf("could not read %s, delete and re-initialize this directory: %w", PackageFileName, err)
	}

	user := strings.TrimSpace(cfg.User)
	switch {
	case cfg.Package == nil && strings.TrimSpace(cfg.Host) != "" && user != "":
		return NoPackage, nil
	case cfg.Package != nil && user != "":
		return ReadyToPack, nil
	default:
		return InvalidDir, nil
	}
}
