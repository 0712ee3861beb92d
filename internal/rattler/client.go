package rattler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tdejager/signing-tests/internal/execshell"
)

const (
	buildSubcommandConstant                 = "build"
	uploadSubcommandConstant                = "upload"
	uploadDestinationConstant               = "prefix"
	recipeFlagConstant                      = "-r"
	outputDirectoryFlagConstant             = "--output-dir"
	skipExistingFlagConstant                = "--skip-existing"
	skipExistingAllValueConstant            = "all"
	channelFlagConstant                     = "-c"
	hostURLFlagConstant                     = "-u"
	variantConfigFlagConstant               = "-m"
	targetPlatformFlagConstant              = "--target-platform"
	generateAttestationFlagConstant         = "--generate-attestation"
	channelURLTemplateConstant              = "%s/channels/%s"
	recipePathFieldNameConstant             = "recipe_path"
	outputDirectoryFieldNameConstant        = "output_directory"
	channelBaseURLFieldNameConstant         = "channel_base_url"
	channelNameFieldNameConstant            = "channel_name"
	artifactPathFieldNameConstant           = "artifact_path"
	requiredValueMessageConstant            = "value required"
	executorNotConfiguredMessageConstant    = "rattler-build executor not configured"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	invalidInputErrorTemplateConstant       = "%s: %s"
	buildOperationNameConstant              = OperationName("BuildRecipe")
	uploadOperationNameConstant             = OperationName("UploadArtifact")
)

// OperationName describes a named rattler-build workflow supported by the client.
type OperationName string

// BuildOptions configures a single build invocation.
type BuildOptions struct {
	RecipePath        string
	OutputDirectory   string
	ChannelBaseURL    string
	ChannelName       string
	VariantConfigPath string
	TargetPlatform    string
}

// UploadOptions configures a single artifact upload.
type UploadOptions struct {
	ChannelBaseURL      string
	ChannelName         string
	ArtifactPath        string
	GenerateAttestation bool
}

// RattlerCommandExecutor is the minimal interface required from execshell.ShellExecutor.
type RattlerCommandExecutor interface {
	ExecuteRattlerBuild(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// Client coordinates rattler-build invocations through execshell.
type Client struct {
	executor RattlerCommandExecutor
}

// ErrExecutorNotConfigured indicates the client was constructed without an executor.
var ErrExecutorNotConfigured = errors.New(executorNotConfiguredMessageConstant)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps execution issues for rattler-build operations.
type OperationError struct {
	Operation OperationName
	Cause     error
}

// Error describes the operation failure.
func (operationError OperationError) Error() string {
	if operationError.Cause == nil {
		return fmt.Sprintf(operationErrorMessageTemplateConstant, operationError.Operation)
	}
	return fmt.Sprintf(operationErrorWithCauseTemplateConstant, operationError.Operation, operationError.Cause)
}

// Unwrap exposes the underlying cause.
func (operationError OperationError) Unwrap() error {
	return operationError.Cause
}

// NewClient constructs a rattler-build client.
func NewClient(executor RattlerCommandExecutor) (*Client, error) {
	if executor == nil {
		return nil, ErrExecutorNotConfigured
	}
	return &Client{executor: executor}, nil
}

// BuildRecipe builds one recipe into the output directory, resolving
// dependencies against the target channel and skipping packages that already
// exist there.
func (client *Client) BuildRecipe(executionContext context.Context, options BuildOptions) error {
	recipePath := strings.TrimSpace(options.RecipePath)
	if len(recipePath) == 0 {
		return InvalidInputError{FieldName: recipePathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	outputDirectory := strings.TrimSpace(options.OutputDirectory)
	if len(outputDirectory) == 0 {
		return InvalidInputError{FieldName: outputDirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	channelBaseURL := strings.TrimSpace(options.ChannelBaseURL)
	if len(channelBaseURL) == 0 {
		return InvalidInputError{FieldName: channelBaseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	channelName := strings.TrimSpace(options.ChannelName)
	if len(channelName) == 0 {
		return InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		buildSubcommandConstant,
		recipeFlagConstant,
		recipePath,
		outputDirectoryFlagConstant,
		outputDirectory,
		skipExistingFlagConstant,
		skipExistingAllValueConstant,
		channelFlagConstant,
		fmt.Sprintf(channelURLTemplateConstant, channelBaseURL, channelName),
	}

	variantConfigPath := strings.TrimSpace(options.VariantConfigPath)
	if len(variantConfigPath) > 0 {
		arguments = append(arguments, variantConfigFlagConstant, variantConfigPath)
	}

	targetPlatform := strings.TrimSpace(options.TargetPlatform)
	if len(targetPlatform) > 0 {
		arguments = append(arguments, targetPlatformFlagConstant, targetPlatform)
	}

	commandDetails := execshell.CommandDetails{Arguments: arguments}

	_, executionError := client.executor.ExecuteRattlerBuild(executionContext, commandDetails)
	if executionError != nil {
		return OperationError{Operation: buildOperationNameConstant, Cause: executionError}
	}

	return nil
}

// UploadArtifact uploads one built artifact to the channel, optionally
// requesting an attestation. The artifact path is always the final argument.
func (client *Client) UploadArtifact(executionContext context.Context, options UploadOptions) error {
	channelBaseURL := strings.TrimSpace(options.ChannelBaseURL)
	if len(channelBaseURL) == 0 {
		return InvalidInputError{FieldName: channelBaseURLFieldNameConstant, Message: requiredValueMessageConstant}
	}

	channelName := strings.TrimSpace(options.ChannelName)
	if len(channelName) == 0 {
		return InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	artifactPath := strings.TrimSpace(options.ArtifactPath)
	if len(artifactPath) == 0 {
		return InvalidInputError{FieldName: artifactPathFieldNameConstant, Message: requiredValueMessageConstant}
	}

	arguments := []string{
		uploadSubcommandConstant,
		uploadDestinationConstant,
		channelFlagConstant,
		channelName,
		hostURLFlagConstant,
		channelBaseURL,
	}

	if options.GenerateAttestation {
		arguments = append(arguments, generateAttestationFlagConstant)
	}

	arguments = append(arguments, artifactPath)

	commandDetails := execshell.CommandDetails{Arguments: arguments}

	_, executionError := client.executor.ExecuteRattlerBuild(executionContext, commandDetails)
	if executionError != nil {
		return OperationError{Operation: uploadOperationNameConstant, Cause: executionError}
	}

	return nil
}
