package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/artifacts"
	"github.com/tdejager/signing-tests/internal/execshell"
	"github.com/tdejager/signing-tests/internal/rattler"
	"github.com/tdejager/signing-tests/internal/recipes"
	"github.com/tdejager/signing-tests/internal/scenarios"
	"github.com/tdejager/signing-tests/internal/ui"
	flagutils "github.com/tdejager/signing-tests/internal/utils/flags"
)

const (
	publishCommandUseConstant              = "publish <scenario|all>"
	publishCommandShortDescriptionConstant = "Build and upload scenario packages"
	publishCommandLongDescriptionConstant  = "publish builds every recipe of the selected scenario with rattler-build and uploads the produced artifacts to the configured channel, attesting them according to the scenario rules."
	publishExecutionErrorTemplateConstant  = "publish failed: %w"
)

// PublishCommandBuilder assembles the publish command.
type PublishCommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider HumanReadableLoggingProvider
	CommandRunner                execshell.CommandRunner
	Registry                     *scenarios.Registry
}

// Build constructs the publish command.
func (builder *PublishCommandBuilder) Build() (*cobra.Command, error) {
	publishCommand := &cobra.Command{
		Use:   publishCommandUseConstant,
		Short: publishCommandShortDescriptionConstant,
		Long:  publishCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}

	flagutils.AddToggleFlag(publishCommand.Flags(), nil, dryRunFlagNameConstant, "", false, dryRunFlagDescriptionConstant)

	return publishCommand, nil
}

func (builder *PublishCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := resolveConfiguration(builder.ConfigurationProvider)

	dryRunValue, dryRunFlagError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunFlagError != nil {
		return dryRunFlagError
	}

	logger := resolveLogger(builder.LoggerProvider)

	shellExecutor, executorError := builder.resolveExecutor(logger)
	if executorError != nil {
		return executorError
	}

	rattlerClient, clientError := rattler.NewClient(shellExecutor)
	if clientError != nil {
		return clientError
	}

	publishService, serviceError := scenarios.NewPublishService(scenarios.PublishDependencies{
		Logger:           logger,
		Builder:          rattlerClient,
		Uploader:         rattlerClient,
		RecipeDiscoverer: recipes.NewFilesystemRecipeDiscoverer(),
		ManifestLoader:   recipes.LoadManifest,
		ArtifactLocator:  artifacts.NewFilesystemArtifactLocator(),
		Registry:         resolveScenarioRegistry(builder.Registry),
	})
	if serviceError != nil {
		return serviceError
	}

	publishOptions := scenarios.PublishOptions{
		Target:         strings.TrimSpace(arguments[0]),
		RecipesRoot:    configuration.Workspace.RecipesRoot,
		OutputRoot:     configuration.Workspace.OutputRoot,
		ChannelBaseURL: configuration.Channel.BaseURL,
		ChannelName:    configuration.Channel.Name,
		DryRun:         dryRunValue,
	}

	if _, executionError := publishService.Execute(command.Context(), publishOptions); executionError != nil {
		return fmt.Errorf(publishExecutionErrorTemplateConstant, executionError)
	}

	return nil
}

func (builder *PublishCommandBuilder) resolveExecutor(logger *zap.Logger) (*execshell.ShellExecutor, error) {
	commandRunner := builder.CommandRunner
	if commandRunner == nil {
		commandRunner = execshell.NewOSCommandRunner()
	}

	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		return execshell.NewShellExecutorWithObserver(logger, commandRunner, ui.NewConsoleCommandEventLogger(logger))
	}

	return execshell.NewShellExecutor(logger, commandRunner)
}
