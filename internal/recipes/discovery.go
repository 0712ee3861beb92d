package recipes

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// RecipeFileName is the manifest file expected in each recipe directory.
	RecipeFileName = "recipe.yaml"
	// VariantsFileName is the variant configuration that may sit next to a recipe.
	VariantsFileName = "variants.yaml"
)

const recipesDirectoryReadErrorTemplateConstant = "unable to read recipes directory %s: %w"

// VersionedRecipe identifies a single version directory beneath a recipe root.
type VersionedRecipe struct {
	Version    string
	RecipePath string
}

// FilesystemRecipeDiscoverer locates versioned recipe directories on disk.
type FilesystemRecipeDiscoverer struct{}

// NewFilesystemRecipeDiscoverer constructs a discoverer backed by os.ReadDir.
func NewFilesystemRecipeDiscoverer() *FilesystemRecipeDiscoverer {
	return &FilesystemRecipeDiscoverer{}
}

// DiscoverVersionedRecipes lists the version directories beneath the provided
// recipe root. os.ReadDir returns entries sorted by filename, which fixes the
// build order. Non-directory entries are skipped.
func (discoverer *FilesystemRecipeDiscoverer) DiscoverVersionedRecipes(recipesDirectory string) ([]VersionedRecipe, error) {
	directoryEntries, readError := os.ReadDir(recipesDirectory)
	if readError != nil {
		return nil, fmt.Errorf(recipesDirectoryReadErrorTemplateConstant, recipesDirectory, readError)
	}

	var versionedRecipes []VersionedRecipe
	for _, directoryEntry := range directoryEntries {
		if !directoryEntry.IsDir() {
			continue
		}
		versionedRecipes = append(versionedRecipes, VersionedRecipe{
			Version:    directoryEntry.Name(),
			RecipePath: filepath.Join(recipesDirectory, directoryEntry.Name(), RecipeFileName),
		})
	}

	return versionedRecipes, nil
}
