package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/licht-dev/licht-compile/internal/config"
)

func TestExecute_BuildEmptyProject(t *testing.T) {
	dir := t.TempDir()

	code := Execute("licht-compile", []string{"--cwd", dir, "build"})
	require.Equal(t, 0, code)
	assert.DirExists(t, filepath.Join(dir, "dist"))
}

func TestExecute_CleanTwice(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist", "assets"), 0o755))

	assert.Equal(t, 0, Execute("licht-compile", []string{"--cwd", dir, "clean"}))
	assert.Equal(t, 0, Execute("licht-pages", []string{"--cwd", dir, "clean"}))
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
}

func TestExecute_CompileFailureMapsToBuildExitCode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "index.html"), []byte("{% if %}"), 0o644))

	assert.Equal(t, 11, Execute("licht-compile", []string{"--cwd", dir, "compile"}))
}

func TestExecute_InitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, 0, Execute("licht-compile", []string{"--cwd", dir, "init"}))
	assert.FileExists(t, filepath.Join(dir, config.FileBaseName+".yaml"))
	assert.Equal(t, 2, Execute("licht-compile", []string{"--cwd", dir, "init"}))
	assert.Equal(t, 0, Execute("licht-compile", []string{"--cwd", dir, "init", "--force"}))
}

func TestExecute_UnknownCommand(t *testing.T) {
	assert.Equal(t, 2, Execute("licht-compile", []string{"deploy"}))
}

func TestTasksCmd_PrintsTrees(t *testing.T) {
	var out bytes.Buffer
	cmd := &TasksCmd{}
	require.NoError(t, cmd.Run(&Global{Out: &out}, &CLI{Cwd: t.TempDir()}))

	assert.Contains(t, out.String(), "build (series)\n├── clean\n")
	assert.Contains(t, out.String(), "develop (series)\n")
	assert.Contains(t, out.String(), "└── serve\n")
}

func TestWithPort(t *testing.T) {
	assert.Nil(t, withPort(0))

	cfg := config.Default()
	withPort(3000)(cfg)
	assert.Equal(t, 3000, cfg.Server.Port)
}
