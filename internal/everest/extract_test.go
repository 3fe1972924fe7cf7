package everest

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func writeZip(t *testing.T, files map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.zip")
	require.NoError(t, os.WriteFile(path, zipBytes(t, files), 0644))
	return path
}

type countingProgress struct {
	total, count int
	finished     bool
}

func (p *countingProgress) Increment() { p.count++ }
func (p *countingProgress) Finish()    { p.finished = true }

func TestExtract_MainLayout(t *testing.T) {
	artifact := writeZip(t, map[string]string{
		"main/MiniInstaller.exe":      "installer",
		"main/everest-lib/Mono.dll":   "lib",
		"README.txt":                  "skipped",
		"olympus-meta/something.json": "skipped",
	})
	dest := t.TempDir()

	var p countingProgress
	n, err := Extract(artifact, dest, func(total int) Progress {
		p.total = total
		return &p
	})
	require.NoError(t, err)

	assert.Equal(t, 2, n)
	assert.Equal(t, 2, p.total)
	assert.Equal(t, 2, p.count)
	assert.True(t, p.finished)
	assert.FileExists(t, filepath.Join(dest, "MiniInstaller.exe"))
	assert.FileExists(t, filepath.Join(dest, "everest-lib", "Mono.dll"))
	assert.NoFileExists(t, filepath.Join(dest, "README.txt"))
}

func TestExtract_NestedLayout(t *testing.T) {
	inner := zipBytes(t, map[string]string{
		"MiniInstaller.exe":  "installer",
		"Celeste.Mod.mm.dll": "patch",
	})
	artifact := writeZip(t, map[string]string{NestedArtifact: string(inner)})
	dest := t.TempDir()

	n, err := Extract(artifact, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(filepath.Join(dest, "Celeste.Mod.mm.dll"))
	require.NoError(t, err)
	assert.Equal(t, "patch", string(data))
}

func TestExtract_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "game")
	require.NoError(t, os.MkdirAll(dest, 0755))

	artifact := writeZip(t, map[string]string{"main/../../escaped.txt": "nope"})

	_, err := Extract(artifact, dest, nil)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(root, "escaped.txt"))
}

func TestExtract_UnknownLayout(t *testing.T) {
	artifact := writeZip(t, map[string]string{"random/file.txt": "x"})
	_, err := Extract(artifact, t.TempDir(), nil)
	assert.Error(t, err)
}

func TestExtract_NotAZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0644))
	_, err := Extract(path, t.TempDir(), nil)
	assert.Error(t, err)
}

func TestSafeJoin(t *testing.T) {
	dest := filepath.Join(string(filepath.Separator), "games", "celeste")
	_, err := safeJoin(dest, "../x")
	assert.ErrorIs(t, err, ErrUnsafePath)
	_, err = safeJoin(dest, "/etc/passwd")
	assert.ErrorIs(t, err, ErrUnsafePath)

	got, err := safeJoin(dest, "Mods/a.zip")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "Mods", "a.zip"), got)
}
