package uibuild_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xlo-tools/xlo/internal/core/model"
	"github.com/xlo-tools/xlo/internal/core/uibuild"
)

var runtimeFiles = []string{
	"index.html",
	"build-ao.js",
	"build-vlo.js",
	"public/fonts.css",
	"public/nflc-logo2.jpg",
	"public/nflc-logo2.png",
	"public/Pattern1.png",
	"public/MaterialIcons-Regular.woff2",
	"public/videogular.css",
	"public/NotoSansUI-Regular.ttf",
	"public/NotoNaskhArabicUI-Regular.ttf",
	"public/NotoSansHebrew-Regular.ttf",
	"public/NotoSansKR-Regular.otf",
	"public/LICENSE_OFL.txt",
	"public/beep.mp3",
	"public/kennedy.mp3",
	"public/littlebeep.mp3",
	"public/passage1.mp3",
	"public/unrelated.bin",
}

func newRuntime(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range runtimeFiles {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0644))
	}
	return dir
}

func TestPatterns_ScriptFonts(t *testing.T) {
	t.Parallel()
	sel := uibuild.Patterns("VLO", "", model.NewScriptSet("arabic", "hebrew", "klingon"))
	assert.Contains(t, sel.Include, "build-vlo.js")
	assert.Contains(t, sel.Include, "public/NotoNaskhArabicUI-*")
	assert.Contains(t, sel.Include, "public/NotoSansHebrew-*")
	assert.NotContains(t, sel.Include, "public/NotoSansKR-*")
	assert.Empty(t, sel.Exclude)
}

func TestPatterns_SharedFontListedOnce(t *testing.T) {
	t.Parallel()
	sel := uibuild.Patterns("vlo", "", model.NewScriptSet("jiantizi", "hanji-jiantizi"))
	n := 0
	for _, p := range sel.Include {
		if p == "public/NotoSansSC-*" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestResolve_ListeningAO(t *testing.T) {
	t.Parallel()
	c, err := uibuild.NewCopier(newRuntime(t))
	require.NoError(t, err)

	files, err := c.Resolve(uibuild.Patterns("ao", "LMC", model.NewScriptSet("arabic")))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"build-ao.js",
		"index.html",
		"public/LICENSE_OFL.txt",
		"public/MaterialIcons-Regular.woff2",
		"public/NotoNaskhArabicUI-Regular.ttf",
		"public/NotoSansUI-Regular.ttf",
		"public/Pattern1.png",
		"public/beep.mp3",
		"public/fonts.css",
		"public/kennedy.mp3",
		"public/littlebeep.mp3",
		"public/nflc-logo2.jpg",
		"public/nflc-logo2.png",
		"public/passage1.mp3",
		"public/videogular.css",
	}, files)
}

func TestResolve_ReadingAOExcludesVideoPlayer(t *testing.T) {
	t.Parallel()
	c, err := uibuild.NewCopier(newRuntime(t))
	require.NoError(t, err)

	files, err := c.Resolve(uibuild.Patterns("ao", "RMC", nil))
	require.NoError(t, err)
	assert.NotContains(t, files, "public/videogular.css")
	assert.NotContains(t, files, "public/beep.mp3")
	assert.Contains(t, files, "public/Pattern1.png")
	assert.NotContains(t, files, "public/unrelated.bin")
}

func TestCopyInto(t *testing.T) {
	t.Parallel()
	c, err := uibuild.NewCopier(newRuntime(t))
	require.NoError(t, err)
	dest := t.TempDir()
	sel := uibuild.Patterns("vlo", "", model.NewScriptSet("korean"))

	copied, err := c.CopyInto(dest, sel, false)
	require.NoError(t, err)
	assert.Contains(t, copied, "public/NotoSansKR-Regular.otf")
	data, err := os.ReadFile(filepath.Join(dest, "public", "NotoSansKR-Regular.otf"))
	require.NoError(t, err)
	assert.Equal(t, "public/NotoSansKR-Regular.otf", string(data))

	again, err := c.CopyInto(dest, sel, false)
	require.NoError(t, err)
	assert.Nil(t, again, "existing launch page skips the copy")

	forced, err := c.CopyInto(dest, sel, true)
	require.NoError(t, err)
	assert.Equal(t, copied, forced)
}

func TestIsListening(t *testing.T) {
	t.Parallel()
	assert.True(t, uibuild.IsListening("LCR"))
	assert.True(t, uibuild.IsListening("lmc"))
	assert.False(t, uibuild.IsListening("RMC"))
	assert.False(t, uibuild.IsListening(""))
}

func TestMerge(t *testing.T) {
	t.Parallel()
	reading := uibuild.Patterns("ao", "RMC", nil)
	listening := uibuild.Patterns("ao", "LMC", nil)
	video := uibuild.Patterns("vlo", "", nil)

	merged := uibuild.Merge(reading, listening, video)
	assert.Contains(t, merged.Include, "build-ao.js")
	assert.Contains(t, merged.Include, "build-vlo.js")
	assert.Contains(t, merged.Include, "public/passage*.mp3")
	assert.Empty(t, merged.Exclude, "the listening object needs the video player")

	count := 0
	for _, p := range merged.Include {
		if p == "index.html" {
			count++
		}
	}
	assert.Equal(t, 1, count)

	onlyReading := uibuild.Merge(reading, uibuild.Patterns("ao", "RCR", nil))
	assert.Equal(t, []string{"public/videogular*"}, onlyReading.Exclude)
}
