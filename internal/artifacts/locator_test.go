package artifacts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tdejager/signing-tests/internal/artifacts"
)

func writeArtifactFile(t *testing.T, directory string, relativePath string) string {
	t.Helper()
	fullPath := filepath.Join(directory, relativePath)
	require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
	require.NoError(t, os.WriteFile(fullPath, []byte("artifact"), 0o600))
	return fullPath
}

func TestLocateArtifactsReturnsSortedCondaFiles(t *testing.T) {
	outputDirectory := t.TempDir()
	secondArtifact := writeArtifactFile(t, outputDirectory, filepath.Join("noarch", "example-2.0.0-h456.conda"))
	firstArtifact := writeArtifactFile(t, outputDirectory, filepath.Join("noarch", "example-1.0.0-h123.conda"))
	writeArtifactFile(t, outputDirectory, filepath.Join("noarch", "repodata.json"))
	writeArtifactFile(t, outputDirectory, filepath.Join("linux-64", "example-1.0.0-h123.tar.bz2"))

	locator := artifacts.NewFilesystemArtifactLocator()
	artifactPaths, locateError := locator.LocateArtifacts(outputDirectory)
	require.NoError(t, locateError)

	require.Equal(t, []string{firstArtifact, secondArtifact}, artifactPaths)
}

func TestLocateArtifactsSpansPlatformSubdirectories(t *testing.T) {
	outputDirectory := t.TempDir()
	linuxArtifact := writeArtifactFile(t, outputDirectory, filepath.Join("linux-64", "variants-unsigned-0.1.0-py312h1.conda"))
	noarchArtifact := writeArtifactFile(t, outputDirectory, filepath.Join("noarch", "all-signed-1.0.0-h0.conda"))

	locator := artifacts.NewFilesystemArtifactLocator()
	artifactPaths, locateError := locator.LocateArtifacts(outputDirectory)
	require.NoError(t, locateError)

	require.Equal(t, []string{linuxArtifact, noarchArtifact}, artifactPaths)
}

func TestLocateArtifactsMissingDirectoryYieldsNothing(t *testing.T) {
	locator := artifacts.NewFilesystemArtifactLocator()

	artifactPaths, locateError := locator.LocateArtifacts(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, locateError)
	require.Empty(t, artifactPaths)
}
