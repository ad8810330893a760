package pack_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/xlo-tools/xlo/internal/cli/pack"
	"github.com/xlo-tools/xlo/internal/core/catalog"
	"github.com/xlo-tools/xlo/internal/core/catalog/catalogtest"
	"github.com/xlo-tools/xlo/internal/core/config"
	"github.com/xlo-tools/xlo/internal/core/lockfile"
	"github.com/xlo-tools/xlo/internal/core/model"
)

func newServer(t *testing.T) *catalogtest.Server {
	t.Helper()
	srv := catalogtest.New(t)
	srv.AddContainer("LOUI_v2-0", map[string][]byte{
		"index.html":  []byte("<html></html>"),
		"build-ao.js": []byte("ao"),
	})
	srv.AddContainer(catalog.PublicContainer, map[string][]byte{"fonts.css": []byte("")})
	for _, id := range []string{"ao1", "ao2"} {
		srv.AddObject(model.LearningObject{ContainerID: id},
			`{"product":"ao","lessonType":"RMC","title":"<p>Reading</p>"}`,
			map[string][]byte{"image.jpg": []byte(id)})
	}
	return srv
}

func setupPackage(t *testing.T, host, runEnv string) string {
	t.Helper()
	t.Setenv("XLO_HOST", "")
	t.Setenv("XLO_PASSWORD", "")
	t.Setenv("NO_COLOR", "1")
	dir := t.TempDir()
	require.NoError(t, config.Write(dir, &config.PackageConfig{
		Host:        host,
		User:        catalogtest.User,
		RunEnv:      runEnv,
		Concurrency: 4,
		Timeout:     "5s",
		Package:     &config.PackageSpec{ProductType: "ao", Contract: "C-1"},
	}))
	return dir
}

func runPack(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := &cli.App{
		Name:           "xlo",
		Writer:         &out,
		ErrWriter:      &errOut,
		Commands:       []*cli.Command{pack.NewPackCommand()},
		ExitErrHandler: func(*cli.Context, error) {},
	}
	err := app.Run(append([]string{"xlo", "pack"}, args...))
	return out.String(), errOut.String(), err
}

func TestPack_SCORM(t *testing.T) {
	srv := newServer(t)
	dir := setupPackage(t, srv.URL, "")

	out, _, err := runPack(t, "--dir", dir, "--password", catalogtest.Password)
	require.NoError(t, err)
	assert.Contains(t, out, "Packed 2 object(s)")
	assert.FileExists(t, filepath.Join(dir, "ao1.zip"))
	assert.FileExists(t, filepath.Join(dir, "ao2.zip"))

	lf, err := lockfile.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "scorm2004", lf.RunEnv)
	assert.Equal(t, []string{"ao1", "ao2"}, lf.Keys())
}

func TestPack_PasswordFromEnvAndConfigRunEnv(t *testing.T) {
	srv := newServer(t)
	dir := setupPackage(t, srv.URL, "standalone")
	t.Setenv("XLO_PASSWORD", catalogtest.Password)

	_, _, err := runPack(t, "--dir", dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "data", "ao1", "image.jpg"))
	assert.NoFileExists(t, filepath.Join(dir, "ao1.zip"))

	// The flag overrides the configured run environment.
	_, _, err = runPack(t, "--dir", dir, "--run-env", "scorm1.2")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "ao1.zip"))
}

func TestPack_ReportsFailedUnits(t *testing.T) {
	srv := newServer(t)
	srv.Fail("ao2/image.jpg", 1)
	dir := setupPackage(t, srv.URL, "")

	out, errOut, err := runPack(t, "--dir", dir, "--password", catalogtest.Password)
	require.NoError(t, err, "per-file failures do not fail the run")
	assert.Contains(t, out, "1 failure(s)")
	assert.Contains(t, errOut, "Failed units: ao2")
}

func TestPack_Errors(t *testing.T) {
	srv := newServer(t)

	t.Run("wrong password", func(t *testing.T) {
		dir := setupPackage(t, srv.URL, "")
		_, _, err := runPack(t, "--dir", dir, "--password", "nope")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "authentication failed")
		assert.NoDirExists(t, filepath.Join(dir, "__UI__"))
	})

	t.Run("missing password", func(t *testing.T) {
		dir := setupPackage(t, srv.URL, "")
		_, _, err := runPack(t, "--dir", dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "XLO_PASSWORD")
	})

	t.Run("not a package directory", func(t *testing.T) {
		_, _, err := runPack(t, "--dir", t.TempDir(), "--password", "x")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not ready to pack")
	})

	t.Run("bad run env", func(t *testing.T) {
		dir := setupPackage(t, srv.URL, "")
		_, _, err := runPack(t, "--dir", dir, "--password", catalogtest.Password, "--run-env", "tincan")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown run environment")
	})
}
