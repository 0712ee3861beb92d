package scenarios

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/rattler"
	"github.com/tdejager/signing-tests/internal/recipes"
)

const (
	targetFieldNameConstant                = "target"
	recipesRootFieldNameConstant           = "recipes_root"
	outputRootFieldNameConstant            = "output_root"
	channelBaseURLFieldNameConstant        = "channel_base_url"
	channelNameFieldNameConstant           = "channel_name"
	requiredValueMessageConstant           = "value required"
	invalidInputErrorTemplateConstant      = "%s: %s"
	recipeBuilderMissingMessageConstant    = "recipe builder not configured"
	artifactUploaderMissingMessageConstant = "artifact uploader not configured"
	recipeDiscovererMissingMessageConstant = "recipe discoverer not configured"
	manifestLoaderMissingMessageConstant   = "manifest loader not configured"
	artifactLocatorMissingMessageConstant  = "artifact locator not configured"
	registryMissingMessageConstant         = "scenario registry not configured"
	scenarioErrorTemplateConstant          = "scenario %s: %w"
	buildErrorTemplateConstant             = "unable to build %s: %w"
	uploadErrorTemplateConstant            = "unable to upload %s: %w"
	manifestMismatchErrorTemplateConstant  = "recipe %s declares package %s, expected %s"
	buildingPackageMessageConstant         = "building package"
	plannedBuildMessageConstant            = "planned build"
	plannedUploadMessageConstant           = "planned upload"
	noArtifactsFoundMessageConstant        = "no artifacts found"
	scenarioLogFieldNameConstant           = "scenario"
	packageNameLogFieldNameConstant        = "package"
	packageVersionLogFieldNameConstant     = "version"
	recipePathLogFieldNameConstant         = "recipe"
	artifactPathLogFieldNameConstant       = "artifact"
	attestationLogFieldNameConstant        = "attestation"
	outputDirectoryLogFieldNameConstant    = "output_directory"
)

// InvalidInputError describes option validation failures.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// ManifestMismatchError reports a recipe whose package name does not match
// its scenario registration.
type ManifestMismatchError struct {
	RecipePath   string
	ScenarioName string
	PackageName  string
}

// Error names the mismatched recipe and package.
func (mismatchError ManifestMismatchError) Error() string {
	return fmt.Sprintf(manifestMismatchErrorTemplateConstant, mismatchError.RecipePath, mismatchError.PackageName, mismatchError.ScenarioName)
}

// RecipeBuilder builds one recipe through the external build tool.
type RecipeBuilder interface {
	BuildRecipe(executionContext context.Context, options rattler.BuildOptions) error
}

// ArtifactUploader uploads one artifact through the external build tool.
type ArtifactUploader interface {
	UploadArtifact(executionContext context.Context, options rattler.UploadOptions) error
}

// RecipeDiscoverer lists versioned recipe directories beneath a recipe root.
type RecipeDiscoverer interface {
	DiscoverVersionedRecipes(recipesDirectory string) ([]recipes.VersionedRecipe, error)
}

// ManifestLoader parses one recipe manifest.
type ManifestLoader func(recipePath string) (recipes.Manifest, error)

// ArtifactLocator enumerates built artifacts beneath an output directory.
type ArtifactLocator interface {
	LocateArtifacts(outputDirectory string) ([]string, error)
}

// Sentinel errors reported during service construction.
var (
	errRecipeBuilderMissing    = errors.New(recipeBuilderMissingMessageConstant)
	errArtifactUploaderMissing = errors.New(artifactUploaderMissingMessageConstant)
	errRecipeDiscovererMissing = errors.New(recipeDiscovererMissingMessageConstant)
	errManifestLoaderMissing   = errors.New(manifestLoaderMissingMessageConstant)
	errArtifactLocatorMissing  = errors.New(artifactLocatorMissingMessageConstant)
	errRegistryMissing         = errors.New(registryMissingMessageConstant)
)

// PublishDependencies describes required collaborators for publishing.
type PublishDependencies struct {
	Logger           *zap.Logger
	Builder          RecipeBuilder
	Uploader         ArtifactUploader
	RecipeDiscoverer RecipeDiscoverer
	ManifestLoader   ManifestLoader
	ArtifactLocator  ArtifactLocator
	Registry         *Registry
}

// PublishOptions configures one publish run.
type PublishOptions struct {
	Target         string
	RecipesRoot    string
	OutputRoot     string
	ChannelBaseURL string
	ChannelName    string
	DryRun         bool
}

// ScenarioPublishReport captures what one scenario built and uploaded.
type ScenarioPublishReport struct {
	ScenarioName string
	BuiltRecipes []string
	Uploads      []UploadStep
}

// PublishService builds every relevant recipe for a scenario and uploads the
// produced artifacts with per-artifact attestation decisions.
type PublishService struct {
	logger           *zap.Logger
	builder          RecipeBuilder
	uploader         ArtifactUploader
	recipeDiscoverer RecipeDiscoverer
	manifestLoader   ManifestLoader
	artifactLocator  ArtifactLocator
	registry         *Registry
}

// NewPublishService constructs a PublishService with the provided dependencies.
func NewPublishService(dependencies PublishDependencies) (*PublishService, error) {
	if dependencies.Builder == nil {
		return nil, errRecipeBuilderMissing
	}
	if dependencies.Uploader == nil {
		return nil, errArtifactUploaderMissing
	}
	if dependencies.RecipeDiscoverer == nil {
		return nil, errRecipeDiscovererMissing
	}
	if dependencies.ManifestLoader == nil {
		return nil, errManifestLoaderMissing
	}
	if dependencies.ArtifactLocator == nil {
		return nil, errArtifactLocatorMissing
	}
	if dependencies.Registry == nil {
		return nil, errRegistryMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PublishService{
		logger:           logger,
		builder:          dependencies.Builder,
		uploader:         dependencies.Uploader,
		recipeDiscoverer: dependencies.RecipeDiscoverer,
		manifestLoader:   dependencies.ManifestLoader,
		artifactLocator:  dependencies.ArtifactLocator,
		registry:         dependencies.Registry,
	}, nil
}

// Execute publishes every scenario selected by the target. Each scenario
// builds all of its recipes before the first upload; any failure aborts the
// run immediately.
func (service *PublishService) Execute(executionContext context.Context, options PublishOptions) ([]ScenarioPublishReport, error) {
	if validationError := validatePublishOptions(options); validationError != nil {
		return nil, validationError
	}

	selectedScenarios, resolveError := service.registry.Resolve(options.Target)
	if resolveError != nil {
		return nil, resolveError
	}

	publishReports := make([]ScenarioPublishReport, 0, len(selectedScenarios))
	for _, selectedScenario := range selectedScenarios {
		scenarioReport, scenarioError := service.publishScenario(executionContext, selectedScenario, options)
		if scenarioError != nil {
			return nil, fmt.Errorf(scenarioErrorTemplateConstant, selectedScenario.Name, scenarioError)
		}
		publishReports = append(publishReports, scenarioReport)
	}

	return publishReports, nil
}

func (service *PublishService) publishScenario(executionContext context.Context, selectedScenario Scenario, options PublishOptions) (ScenarioPublishReport, error) {
	recipesDirectory := filepath.Join(options.RecipesRoot, selectedScenario.Name)
	outputDirectory := filepath.Join(options.OutputRoot, selectedScenario.Name)

	buildPlans, planError := service.planBuilds(selectedScenario, recipesDirectory, outputDirectory, options)
	if planError != nil {
		return ScenarioPublishReport{}, planError
	}

	builtRecipes := make([]string, 0, len(buildPlans))
	for _, buildPlan := range buildPlans {
		recipeManifest, manifestError := service.manifestLoader(buildPlan.RecipePath)
		if manifestError != nil {
			return ScenarioPublishReport{}, manifestError
		}
		if recipeManifest.Package.Name != selectedScenario.Name {
			return ScenarioPublishReport{}, ManifestMismatchError{
				RecipePath:   buildPlan.RecipePath,
				ScenarioName: selectedScenario.Name,
				PackageName:  recipeManifest.Package.Name,
			}
		}

		if options.DryRun {
			service.logger.Info(
				plannedBuildMessageConstant,
				zap.String(scenarioLogFieldNameConstant, selectedScenario.Name),
				zap.String(packageNameLogFieldNameConstant, recipeManifest.Package.Name),
				zap.String(packageVersionLogFieldNameConstant, recipeManifest.Package.Version),
				zap.String(recipePathLogFieldNameConstant, buildPlan.RecipePath),
			)
		} else {
			service.logger.Info(
				buildingPackageMessageConstant,
				zap.String(scenarioLogFieldNameConstant, selectedScenario.Name),
				zap.String(packageNameLogFieldNameConstant, recipeManifest.Package.Name),
				zap.String(packageVersionLogFieldNameConstant, recipeManifest.Package.Version),
				zap.String(recipePathLogFieldNameConstant, buildPlan.RecipePath),
			)
			if buildError := service.builder.BuildRecipe(executionContext, buildPlan); buildError != nil {
				return ScenarioPublishReport{}, fmt.Errorf(buildErrorTemplateConstant, buildPlan.RecipePath, buildError)
			}
		}

		builtRecipes = append(builtRecipes, buildPlan.RecipePath)
	}

	artifactPaths, locateError := service.artifactLocator.LocateArtifacts(outputDirectory)
	if locateError != nil {
		return ScenarioPublishReport{}, locateError
	}
	if len(artifactPaths) == 0 {
		service.logger.Warn(
			noArtifactsFoundMessageConstant,
			zap.String(scenarioLogFieldNameConstant, selectedScenario.Name),
			zap.String(outputDirectoryLogFieldNameConstant, outputDirectory),
		)
	}

	uploadSteps := selectedScenario.AttestationRule.PlanUploads(artifactPaths)
	for _, uploadStep := range uploadSteps {
		if options.DryRun {
			service.logger.Info(
				plannedUploadMessageConstant,
				zap.String(scenarioLogFieldNameConstant, selectedScenario.Name),
				zap.String(artifactPathLogFieldNameConstant, uploadStep.ArtifactPath),
				zap.Bool(attestationLogFieldNameConstant, uploadStep.GenerateAttestation),
			)
			continue
		}

		uploadOptions := rattler.UploadOptions{
			ChannelBaseURL:      options.ChannelBaseURL,
			ChannelName:         options.ChannelName,
			ArtifactPath:        uploadStep.ArtifactPath,
			GenerateAttestation: uploadStep.GenerateAttestation,
		}
		if uploadError := service.uploader.UploadArtifact(executionContext, uploadOptions); uploadError != nil {
			return ScenarioPublishReport{}, fmt.Errorf(uploadErrorTemplateConstant, uploadStep.ArtifactPath, uploadError)
		}
	}

	return ScenarioPublishReport{
		ScenarioName: selectedScenario.Name,
		BuiltRecipes: builtRecipes,
		Uploads:      uploadSteps,
	}, nil
}

// planBuilds resolves the build invocations for a scenario. Versioned layouts
// build one recipe per version directory in lexical order; the variant layout
// builds a single recipe with its variant configuration and target platform.
func (service *PublishService) planBuilds(selectedScenario Scenario, recipesDirectory string, outputDirectory string, options PublishOptions) ([]rattler.BuildOptions, error) {
	if selectedScenario.RecipeLayout == RecipeLayoutVariant {
		return []rattler.BuildOptions{
			{
				RecipePath:        filepath.Join(recipesDirectory, recipes.RecipeFileName),
				OutputDirectory:   outputDirectory,
				ChannelBaseURL:    options.ChannelBaseURL,
				ChannelName:       options.ChannelName,
				VariantConfigPath: filepath.Join(recipesDirectory, recipes.VariantsFileName),
				TargetPlatform:    selectedScenario.TargetPlatform,
			},
		}, nil
	}

	versionedRecipes, discoveryError := service.recipeDiscoverer.DiscoverVersionedRecipes(recipesDirectory)
	if discoveryError != nil {
		return nil, discoveryError
	}

	buildPlans := make([]rattler.BuildOptions, 0, len(versionedRecipes))
	for _, versionedRecipe := range versionedRecipes {
		buildPlans = append(buildPlans, rattler.BuildOptions{
			RecipePath:      versionedRecipe.RecipePath,
			OutputDirectory: outputDirectory,
			ChannelBaseURL:  options.ChannelBaseURL,
			ChannelName:     options.ChannelName,
		})
	}

	return buildPlans, nil
}

func validatePublishOptions(options PublishOptions) error {
	if len(options.Target) == 0 {
		return InvalidInputError{FieldName: targetFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.RecipesRoot) == 0 {
		return InvalidInputError{FieldName: recipesRootFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.OutputRoot) == 0 {
		return InvalidInputError{FieldName: outputRootFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.ChannelBaseURL) == 0 {
		return InvalidInputError{FieldName: channelBaseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.ChannelName) == 0 {
		return InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}
