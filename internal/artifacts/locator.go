package artifacts

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

const (
	condaArtifactExtensionConstant           = ".conda"
	outputDirectoryScanErrorTemplateConstant = "unable to scan output directory %s: %w"
)

// FilesystemArtifactLocator enumerates built package artifacts on disk.
type FilesystemArtifactLocator struct{}

// NewFilesystemArtifactLocator constructs an artifact locator backed by filepath.WalkDir.
func NewFilesystemArtifactLocator() *FilesystemArtifactLocator {
	return &FilesystemArtifactLocator{}
}

// LocateArtifacts walks the output directory recursively and returns every
// .conda file path in sorted order. A missing output directory yields no
// artifacts rather than an error.
func (locator *FilesystemArtifactLocator) LocateArtifacts(outputDirectory string) ([]string, error) {
	if _, statError := os.Stat(outputDirectory); statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf(outputDirectoryScanErrorTemplateConstant, outputDirectory, statError)
	}

	var artifactPaths []string
	walkError := filepath.WalkDir(outputDirectory, func(path string, directoryEntry fs.DirEntry, entryError error) error {
		if entryError != nil {
			return entryError
		}
		if directoryEntry.IsDir() {
			return nil
		}
		if filepath.Ext(directoryEntry.Name()) != condaArtifactExtensionConstant {
			return nil
		}
		artifactPaths = append(artifactPaths, path)
		return nil
	})
	if walkError != nil {
		return nil, fmt.Errorf(outputDirectoryScanErrorTemplateConstant, outputDirectory, walkError)
	}

	sort.Strings(artifactPaths)
	return artifactPaths, nil
}
