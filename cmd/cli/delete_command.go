package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tdejager/signing-tests/internal/credentials"
	"github.com/tdejager/signing-tests/internal/prefixdev"
	"github.com/tdejager/signing-tests/internal/scenarios"
	flagutils "github.com/tdejager/signing-tests/internal/utils/flags"
)

const (
	deleteCommandUseConstant              = "delete <scenario|all>"
	deleteCommandShortDescriptionConstant = "Delete scenario artifacts from the channel"
	deleteCommandLongDescriptionConstant  = "delete removes every channel artifact belonging to the selected scenario through the prefix.dev API."
	deleteExecutionErrorTemplateConstant  = "delete failed: %w"
	tokenVariableFlagNameConstant         = "token-variable"
	tokenVariableFlagDescriptionConstant  = "Environment variable holding the channel API token"
)

// DeleteCommandBuilder assembles the delete command.
type DeleteCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            prefixdev.HTTPClient
	ServiceBaseURL        string
	CredentialResolver    credentials.TokenResolver
	Registry              *scenarios.Registry
}

// Build constructs the delete command.
func (builder *DeleteCommandBuilder) Build() (*cobra.Command, error) {
	deleteCommand := &cobra.Command{
		Use:   deleteCommandUseConstant,
		Short: deleteCommandShortDescriptionConstant,
		Long:  deleteCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}

	deleteCommand.Flags().String(tokenVariableFlagNameConstant, "", tokenVariableFlagDescriptionConstant)
	flagutils.AddToggleFlag(deleteCommand.Flags(), nil, dryRunFlagNameConstant, "", false, dryRunFlagDescriptionConstant)

	return deleteCommand, nil
}

func (builder *DeleteCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := resolveConfiguration(builder.ConfigurationProvider)

	dryRunValue, dryRunFlagError := command.Flags().GetBool(dryRunFlagNameConstant)
	if dryRunFlagError != nil {
		return dryRunFlagError
	}

	tokenVariableFlagValue, tokenVariableFlagError := command.Flags().GetString(tokenVariableFlagNameConstant)
	if tokenVariableFlagError != nil {
		return tokenVariableFlagError
	}
	tokenVariableName := selectStringValue(tokenVariableFlagValue, configuration.Credentials.TokenVariable)

	logger := resolveLogger(builder.LoggerProvider)

	channelService, channelServiceError := prefixdev.NewChannelService(logger, builder.HTTPClient, prefixdev.ServiceConfiguration{
		BaseURL: selectStringValue(builder.ServiceBaseURL, configuration.Channel.BaseURL),
	})
	if channelServiceError != nil {
		return channelServiceError
	}

	credentialResolver := builder.CredentialResolver
	if credentialResolver == nil {
		credentialResolver = credentials.NewTokenResolver(nil, nil)
	}

	deleteService, serviceError := scenarios.NewDeleteService(scenarios.DeleteDependencies{
		Logger:             logger,
		ChannelClient:      channelService,
		CredentialResolver: credentialResolver,
		Registry:           resolveScenarioRegistry(builder.Registry),
	})
	if serviceError != nil {
		return serviceError
	}

	deleteOptions := scenarios.DeleteOptions{
		Target:              strings.TrimSpace(arguments[0]),
		ChannelName:         configuration.Channel.Name,
		EnvironmentFilePath: configuration.Credentials.EnvironmentFile,
		TokenVariableName:   tokenVariableName,
		DryRun:              dryRunValue,
	}

	if _, executionError := deleteService.Execute(command.Context(), deleteOptions); executionError != nil {
		return fmt.Errorf(deleteExecutionErrorTemplateConstant, executionError)
	}

	return nil
}
