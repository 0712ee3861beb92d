package recipes

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	manifestReadErrorTemplateConstant   = "unable to read recipe manifest %s: %w"
	manifestParseErrorTemplateConstant  = "unable to parse recipe manifest %s: %w"
	manifestNameMissingTemplateConstant = "recipe manifest %s does not declare a package name"
)

// Manifest models the subset of a recipe manifest consumed by this tool.
type Manifest struct {
	Package PackageMetadata `yaml:"package"`
}

// PackageMetadata identifies the package a recipe builds.
type PackageMetadata struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// LoadManifest reads and parses the recipe manifest at the provided path.
func LoadManifest(recipePath string) (Manifest, error) {
	manifestContent, readError := os.ReadFile(recipePath)
	if readError != nil {
		return Manifest{}, fmt.Errorf(manifestReadErrorTemplateConstant, recipePath, readError)
	}

	manifest := Manifest{}
	if unmarshalError := yaml.Unmarshal(manifestContent, &manifest); unmarshalError != nil {
		return Manifest{}, fmt.Errorf(manifestParseErrorTemplateConstant, recipePath, unmarshalError)
	}

	manifest.Package.Name = strings.TrimSpace(manifest.Package.Name)
	manifest.Package.Version = strings.TrimSpace(manifest.Package.Version)
	if len(manifest.Package.Name) == 0 {
		return Manifest{}, fmt.Errorf(manifestNameMissingTemplateConstant, recipePath)
	}

	return manifest, nil
}
