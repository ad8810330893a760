package layout_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xlo-tools/xlo/internal/core/layout"
	"github.com/xlo-tools/xlo/internal/core/model"
)

var allEnvs = []model.RunEnv{model.SCORM2004, model.SCORM1P2, model.Standalone}

func TestPlanner_SCORMPaths(t *testing.T) {
	t.Parallel()
	p := layout.New("/pkg", model.SCORM2004)

	assert.Equal(t, filepath.FromSlash("/pkg/__DATA__/ao1"), p.UIRoot("ao1"))
	assert.Equal(t, filepath.FromSlash("/pkg/__DATA__/ao1/data/ao1"), p.DataDir("ao1"))
	assert.Equal(t, filepath.FromSlash("/pkg/__DATA__/ao1/data/ao1/content.json"), p.ContentFile("ao1"))
	assert.Equal(t, filepath.FromSlash("/pkg/__DATA__/ao1/imsmanifest.xml"), p.ManifestFile("ao1"))
	assert.Equal(t, filepath.FromSlash("/pkg/ao1.zip"), p.ArchiveFile("ao1"))
	assert.Equal(t, filepath.FromSlash("/pkg/__UI__/loui"), p.LouiDir())
	assert.Equal(t, filepath.FromSlash("/pkg/__UI__/loui/public"), p.PublicDir())
}

func TestPlanner_StandalonePaths(t *testing.T) {
	t.Parallel()
	p := layout.New("/pkg", model.Standalone)

	assert.Equal(t, filepath.FromSlash("/pkg"), p.UIRoot("vlo9"))
	assert.Equal(t, filepath.FromSlash("/pkg/data/vlo9"), p.DataDir("vlo9"))
	for _, dir := range p.Skeleton([]string{"vlo9"}) {
		assert.NotContains(t, dir, layout.DataDirName)
	}
}

func TestPlanner_DataDirInjective(t *testing.T) {
	t.Parallel()
	ids := []string{"a", "b", "ab", "a_b", "a.b", "A", "data", "__DATA__"}
	for i := 0; i < 50; i++ {
		ids = append(ids, fmt.Sprintf("lo%03d", i))
	}
	for _, env := range allEnvs {
		p := layout.New("/pkg", env)
		seen := make(map[string]string)
		for _, id := range ids {
			dir := p.DataDir(id)
			if prev, ok := seen[dir]; ok {
				t.Fatalf("%s: %q and %q both map to %s", env, prev, id, dir)
			}
			seen[dir] = id
		}
	}
}

func TestPlanner_UIRootInjectiveForSCORM(t *testing.T) {
	t.Parallel()
	for _, env := range []model.RunEnv{model.SCORM2004, model.SCORM1P2} {
		p := layout.New("/pkg", env)
		assert.NotEqual(t, p.UIRoot("ao1"), p.UIRoot("ao2"))
		assert.NotEqual(t, p.ArchiveFile("ao1"), p.ArchiveFile("ao2"))
	}
}

func TestPlanner_Pure(t *testing.T) {
	t.Parallel()
	p := layout.New("/pkg", model.SCORM1P2)
	assert.Equal(t, p.DataDir("x"), p.DataDir("x"))
	assert.Equal(t, p.UIRoot("x"), layout.New("/pkg", model.SCORM1P2).UIRoot("x"))
}
