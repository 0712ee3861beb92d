package scenarios

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/credentials"
	"github.com/tdejager/signing-tests/internal/prefixdev"
)

const (
	tokenVariableFieldNameConstant           = "token_variable"
	channelClientMissingMessageConstant      = "channel client not configured"
	credentialResolverMissingMessageConstant = "credential resolver not configured"
	indexFetchErrorTemplateConstant          = "unable to fetch channel index for %s: %w"
	deleteErrorTemplateConstant              = "unable to delete %s: %w"
	plannedDeleteMessageConstant             = "planned delete"
	deletedScenarioArtifactsMessageConstant  = "deleted scenario artifacts"
	filenameLogFieldNameConstant             = "filename"
	subdirectoryLogFieldNameConstant         = "subdirectory"
	deletedCountLogFieldNameConstant         = "count"
)

// ChannelClient is the prefixdev surface required for deletion.
type ChannelClient interface {
	FetchRepodata(executionContext context.Context, channelName string, subdirectory string) (prefixdev.Repodata, error)
	DeleteArtifact(executionContext context.Context, deleteRequest prefixdev.DeleteRequest) error
}

// Sentinel errors reported during delete service construction.
var (
	errChannelClientMissing      = errors.New(channelClientMissingMessageConstant)
	errCredentialResolverMissing = errors.New(credentialResolverMissingMessageConstant)
)

// DeleteDependencies describes required collaborators for deletion.
type DeleteDependencies struct {
	Logger             *zap.Logger
	ChannelClient      ChannelClient
	CredentialResolver credentials.TokenResolver
	Registry           *Registry
}

// DeleteOptions configures one delete run.
type DeleteOptions struct {
	Target              string
	ChannelName         string
	EnvironmentFilePath string
	TokenVariableName   string
	DryRun              bool
}

// ScenarioDeleteReport captures the filenames matched for one scenario, in
// deletion order.
type ScenarioDeleteReport struct {
	ScenarioName string
	Filenames    []string
}

// DeleteService removes every channel artifact belonging to a scenario's
// package.
type DeleteService struct {
	logger             *zap.Logger
	channelClient      ChannelClient
	credentialResolver credentials.TokenResolver
	registry           *Registry
}

// NewDeleteService constructs a DeleteService with the provided dependencies.
func NewDeleteService(dependencies DeleteDependencies) (*DeleteService, error) {
	if dependencies.ChannelClient == nil {
		return nil, errChannelClientMissing
	}
	if dependencies.CredentialResolver == nil {
		return nil, errCredentialResolverMissing
	}
	if dependencies.Registry == nil {
		return nil, errRegistryMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeleteService{
		logger:             logger,
		channelClient:      dependencies.ChannelClient,
		credentialResolver: dependencies.CredentialResolver,
		registry:           dependencies.Registry,
	}, nil
}

// Execute deletes the channel artifacts of every scenario selected by the
// target. The credential is resolved before any network call; a resolution
// failure aborts the run without touching the channel.
func (service *DeleteService) Execute(executionContext context.Context, options DeleteOptions) ([]ScenarioDeleteReport, error) {
	if validationError := validateDeleteOptions(options); validationError != nil {
		return nil, validationError
	}

	selectedScenarios, resolveError := service.registry.Resolve(options.Target)
	if resolveError != nil {
		return nil, resolveError
	}

	credentialToken, credentialError := service.credentialResolver.ResolveToken(executionContext, credentials.TokenRequest{
		EnvironmentFilePath: options.EnvironmentFilePath,
		VariableName:        options.TokenVariableName,
	})
	if credentialError != nil {
		return nil, credentialError
	}

	deleteReports := make([]ScenarioDeleteReport, 0, len(selectedScenarios))
	for _, selectedScenario := range selectedScenarios {
		scenarioReport, scenarioError := service.deleteScenario(executionContext, selectedScenario, options, credentialToken)
		if scenarioError != nil {
			return nil, fmt.Errorf(scenarioErrorTemplateConstant, selectedScenario.Name, scenarioError)
		}
		deleteReports = append(deleteReports, scenarioReport)
	}

	return deleteReports, nil
}

func (service *DeleteService) deleteScenario(executionContext context.Context, selectedScenario Scenario, options DeleteOptions, credentialToken string) (ScenarioDeleteReport, error) {
	repodata, fetchError := service.channelClient.FetchRepodata(executionContext, options.ChannelName, selectedScenario.PlatformSubdirectory)
	if fetchError != nil {
		return ScenarioDeleteReport{}, fmt.Errorf(indexFetchErrorTemplateConstant, selectedScenario.PlatformSubdirectory, fetchError)
	}

	matchingFilenames := collectScenarioFilenames(repodata, selectedScenario.Name)

	for _, matchingFilename := range matchingFilenames {
		if options.DryRun {
			service.logger.Info(
				plannedDeleteMessageConstant,
				zap.String(scenarioLogFieldNameConstant, selectedScenario.Name),
				zap.String(subdirectoryLogFieldNameConstant, selectedScenario.PlatformSubdirectory),
				zap.String(filenameLogFieldNameConstant, matchingFilename),
			)
			continue
		}

		deleteRequest := prefixdev.DeleteRequest{
			ChannelName:  options.ChannelName,
			Subdirectory: selectedScenario.PlatformSubdirectory,
			Filename:     matchingFilename,
			Token:        credentialToken,
		}
		if deleteError := service.channelClient.DeleteArtifact(executionContext, deleteRequest); deleteError != nil {
			return ScenarioDeleteReport{}, fmt.Errorf(deleteErrorTemplateConstant, matchingFilename, deleteError)
		}
	}

	if !options.DryRun {
		service.logger.Info(
			deletedScenarioArtifactsMessageConstant,
			zap.String(scenarioLogFieldNameConstant, selectedScenario.Name),
			zap.String(subdirectoryLogFieldNameConstant, selectedScenario.PlatformSubdirectory),
			zap.Int(deletedCountLogFieldNameConstant, len(matchingFilenames)),
		)
	}

	return ScenarioDeleteReport{ScenarioName: selectedScenario.Name, Filenames: matchingFilenames}, nil
}

// collectScenarioFilenames gathers the index filenames whose package name
// matches the scenario, across both index maps, sorted for deterministic
// deletion order.
func collectScenarioFilenames(repodata prefixdev.Repodata, packageName string) []string {
	var matchingFilenames []string
	for artifactFilename, packageEntry := range repodata.Packages {
		if packageEntry.Name == packageName {
			matchingFilenames = append(matchingFilenames, artifactFilename)
		}
	}
	for artifactFilename, packageEntry := range repodata.PackagesConda {
		if packageEntry.Name == packageName {
			matchingFilenames = append(matchingFilenames, artifactFilename)
		}
	}

	sort.Strings(matchingFilenames)
	return matchingFilenames
}

func validateDeleteOptions(options DeleteOptions) error {
	if len(options.Target) == 0 {
		return InvalidInputError{FieldName: targetFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.ChannelName) == 0 {
		return InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.TokenVariableName) == 0 {
		return InvalidInputError{FieldName: tokenVariableFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}
