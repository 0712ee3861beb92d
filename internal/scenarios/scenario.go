package scenarios

import (
	"path/filepath"
	"strings"
)

// AttestationMode selects how upload attestation is decided for a scenario.
type AttestationMode string

const (
	// AttestationModeAll attests every artifact.
	AttestationModeAll AttestationMode = "all"
	// AttestationModeAllExceptMarked attests every artifact except those whose
	// filename contains the marker; the marked artifacts upload last without
	// attestation.
	AttestationModeAllExceptMarked AttestationMode = "all-except-marked"
	// AttestationModeMarkedOnly attests only artifacts whose filename contains
	// the marker.
	AttestationModeMarkedOnly AttestationMode = "marked-only"
)

// RecipeLayout describes how a scenario's recipes are arranged on disk.
type RecipeLayout string

const (
	// RecipeLayoutVersioned expects one recipe.yaml per version directory.
	RecipeLayoutVersioned RecipeLayout = "versioned"
	// RecipeLayoutVariant expects a single recipe.yaml beside a variants.yaml,
	// built for a fixed target platform.
	RecipeLayoutVariant RecipeLayout = "variant"
)

// AttestationRule pairs an attestation mode with its filename marker.
type AttestationRule struct {
	Mode   AttestationMode
	Marker string
}

// UploadStep pairs one artifact with its attestation decision.
type UploadStep struct {
	ArtifactPath        string
	GenerateAttestation bool
}

// Scenario describes one registered signing test case.
type Scenario struct {
	Name                 string
	PlatformSubdirectory string
	RecipeLayout         RecipeLayout
	TargetPlatform       string
	AttestationRule      AttestationRule
}

// PlanUploads maps the provided artifacts to upload steps. Input order is
// preserved except under AttestationModeAllExceptMarked, where marked
// artifacts are withheld and appended last without attestation.
func (rule AttestationRule) PlanUploads(artifactPaths []string) []UploadStep {
	uploadSteps := make([]UploadStep, 0, len(artifactPaths))

	switch rule.Mode {
	case AttestationModeAll:
		for _, artifactPath := range artifactPaths {
			uploadSteps = append(uploadSteps, UploadStep{ArtifactPath: artifactPath, GenerateAttestation: true})
		}
	case AttestationModeAllExceptMarked:
		for _, artifactPath := range artifactPaths {
			if rule.matches(artifactPath) {
				continue
			}
			uploadSteps = append(uploadSteps, UploadStep{ArtifactPath: artifactPath, GenerateAttestation: true})
		}
		for _, artifactPath := range artifactPaths {
			if !rule.matches(artifactPath) {
				continue
			}
			uploadSteps = append(uploadSteps, UploadStep{ArtifactPath: artifactPath, GenerateAttestation: false})
		}
	case AttestationModeMarkedOnly:
		for _, artifactPath := range artifactPaths {
			uploadSteps = append(uploadSteps, UploadStep{ArtifactPath: artifactPath, GenerateAttestation: rule.matches(artifactPath)})
		}
	default:
		for _, artifactPath := range artifactPaths {
			uploadSteps = append(uploadSteps, UploadStep{ArtifactPath: artifactPath})
		}
	}

	return uploadSteps
}

// matches reports whether the artifact's base filename contains the marker.
func (rule AttestationRule) matches(artifactPath string) bool {
	if len(rule.Marker) == 0 {
		return false
	}
	return strings.Contains(filepath.Base(artifactPath), rule.Marker)
}
