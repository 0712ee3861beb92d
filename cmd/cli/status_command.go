package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tdejager/signing-tests/internal/prefixdev"
	"github.com/tdejager/signing-tests/internal/scenarios"
	"github.com/tdejager/signing-tests/internal/utils"
)

const (
	statusCommandUseConstant              = "status <scenario|all>"
	statusCommandShortDescriptionConstant = "Report published scenario artifacts"
	statusCommandLongDescriptionConstant  = "status lists the artifacts each selected scenario currently publishes on the channel together with their version spread."
	statusExecutionErrorTemplateConstant  = "status failed: %w"
)

// StatusCommandBuilder assembles the status command.
type StatusCommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider ConfigurationProvider
	HTTPClient            prefixdev.HTTPClient
	ServiceBaseURL        string
	Registry              *scenarios.Registry
}

// Build constructs the status command.
func (builder *StatusCommandBuilder) Build() (*cobra.Command, error) {
	statusCommand := &cobra.Command{
		Use:   statusCommandUseConstant,
		Short: statusCommandShortDescriptionConstant,
		Long:  statusCommandLongDescriptionConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.run,
	}

	return statusCommand, nil
}

func (builder *StatusCommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration := resolveConfiguration(builder.ConfigurationProvider)

	logger := resolveLogger(builder.LoggerProvider)

	channelService, channelServiceError := prefixdev.NewChannelService(logger, builder.HTTPClient, prefixdev.ServiceConfiguration{
		BaseURL: selectStringValue(builder.ServiceBaseURL, configuration.Channel.BaseURL),
	})
	if channelServiceError != nil {
		return channelServiceError
	}

	statusService, serviceError := scenarios.NewStatusService(scenarios.StatusDependencies{
		Logger:       logger,
		IndexReader:  channelService,
		Registry:     resolveScenarioRegistry(builder.Registry),
		OutputWriter: utils.NewFlushingWriter(command.OutOrStdout()),
	})
	if serviceError != nil {
		return serviceError
	}

	statusOptions := scenarios.StatusOptions{
		Target:      strings.TrimSpace(arguments[0]),
		ChannelName: configuration.Channel.Name,
	}

	if _, executionError := statusService.Execute(command.Context(), statusOptions); executionError != nil {
		return fmt.Errorf(statusExecutionErrorTemplateConstant, executionError)
	}

	return nil
}
