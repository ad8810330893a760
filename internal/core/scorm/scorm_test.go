package scorm_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlo-tools/xlo/internal/core/model"
	"github.com/xlo-tools/xlo/internal/core/scorm"
)

func TestFiles(t *testing.T) {
	t.Parallel()
	for _, env := range []model.RunEnv{model.SCORM2004, model.SCORM1P2} {
		files, err := scorm.Files(env)
		require.NoError(t, err)
		assert.Equal(t, []string{"scorm/api.js"}, files, env.String())
	}

	_, err := scorm.Files(model.Standalone)
	assert.Error(t, err)
}

func TestOverlay_PerVersion(t *testing.T) {
	t.Parallel()
	root2004 := t.TempDir()
	root12 := t.TempDir()

	_, err := scorm.Overlay(model.SCORM2004, root2004, false)
	require.NoError(t, err)
	_, err = scorm.Overlay(model.SCORM1P2, root12, false)
	require.NoError(t, err)

	js2004, err := os.ReadFile(filepath.Join(root2004, "scorm", "api.js"))
	require.NoError(t, err)
	js12, err := os.ReadFile(filepath.Join(root12, "scorm", "api.js"))
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(js2004), "API_1484_11"))
	assert.True(t, strings.Contains(string(js12), "LMSInitialize"))
}

func TestOverlay_SkipsExistingUnlessForced(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	dest := filepath.Join(root, "scorm", "api.js")
	require.NoError(t, os.MkdirAll(filepath.Dir(dest), 0755))
	require.NoError(t, os.WriteFile(dest, []byte("custom"), 0644))

	written, err := scorm.Overlay(model.SCORM2004, root, false)
	require.NoError(t, err)
	assert.Empty(t, written)
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "custom", string(data))

	written, err = scorm.Overlay(model.SCORM2004, root, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"scorm/api.js"}, written)
	data, _ = os.ReadFile(dest)
	assert.NotEqual(t, "custom", string(data))
}
