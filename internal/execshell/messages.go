package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	fallbackUnknownValueLabelConstant       = "unknown"
)

const (
	buildSubcommandNameConstant        = "build"
	uploadSubcommandNameConstant       = "upload"
	recipeFlagConstant                 = "-r"
	outputDirectoryFlagConstant        = "--output-dir"
	targetPlatformFlagConstant         = "--target-platform"
	generateAttestationFlagConstant    = "--generate-attestation"
	channelFlagConstant                = "-c"
	uploadDestinationArgumentConstant  = "prefix"
	minimumUploadArgumentCountConstant = 2
)

const (
	buildStartTemplateConstant              = "Building recipe %s into %s"
	buildWithPlatformStartTemplateConstant  = "Building recipe %s into %s for %s"
	buildSuccessTemplateConstant            = "Built recipe %s"
	buildFailureTemplateConstant            = "Failed to build recipe %s (exit code %d%s)"
	buildExecutionFailureTemplateConstant   = "Unable to build recipe %s: %s"
	uploadAttestedStartTemplateConstant     = "Uploading %s to channel %s with attestation"
	uploadUnattestedStartTemplateConstant   = "Uploading %s to channel %s without attestation"
	uploadAttestedSuccessTemplateConstant   = "Uploaded %s to channel %s with attestation"
	uploadUnattestedSuccessTemplateConstant = "Uploaded %s to channel %s without attestation"
	uploadFailureTemplateConstant           = "Failed to upload %s to channel %s (exit code %d%s)"
	uploadExecutionFailureTemplateConstant  = "Unable to upload %s to channel %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandRattlerBuild {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
	if len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case buildSubcommandNameConstant:
		return formatter.describeBuildMessage(command, result, failure, stage)
	case uploadSubcommandNameConstant:
		return formatter.describeUploadMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeBuildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	recipePath := formatter.ensureValue(findFlagValue(arguments, recipeFlagConstant))
	outputDirectory := formatter.ensureValue(findFlagValue(arguments, outputDirectoryFlagConstant))
	targetPlatform := strings.TrimSpace(findFlagValue(arguments, targetPlatformFlagConstant))

	switch stage {
	case messageStageStart:
		if len(targetPlatform) > 0 {
			return fmt.Sprintf(buildWithPlatformStartTemplateConstant, recipePath, outputDirectory, targetPlatform)
		}
		return fmt.Sprintf(buildStartTemplateConstant, recipePath, outputDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(buildSuccessTemplateConstant, recipePath)
	case messageStageFailure:
		return fmt.Sprintf(buildFailureTemplateConstant, recipePath, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(buildExecutionFailureTemplateConstant, recipePath, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeUploadMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	channelName := formatter.ensureValue(findFlagValue(arguments, channelFlagConstant))
	artifactPath := formatter.ensureValue(formatter.extractUploadArtifact(arguments))
	attested := containsArgument(arguments, generateAttestationFlagConstant)

	switch stage {
	case messageStageStart:
		if attested {
			return fmt.Sprintf(uploadAttestedStartTemplateConstant, artifactPath, channelName)
		}
		return fmt.Sprintf(uploadUnattestedStartTemplateConstant, artifactPath, channelName)
	case messageStageSuccess:
		if attested {
			return fmt.Sprintf(uploadAttestedSuccessTemplateConstant, artifactPath, channelName)
		}
		return fmt.Sprintf(uploadUnattestedSuccessTemplateConstant, artifactPath, channelName)
	case messageStageFailure:
		return fmt.Sprintf(uploadFailureTemplateConstant, artifactPath, channelName, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(uploadExecutionFailureTemplateConstant, artifactPath, channelName, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) extractUploadArtifact(arguments []string) string {
	if len(arguments) < minimumUploadArgumentCountConstant {
		return emptyStringConstant
	}
	lastArgument := strings.TrimSpace(arguments[len(arguments)-1])
	if strings.HasPrefix(lastArgument, "-") {
		return emptyStringConstant
	}
	if lastArgument == uploadDestinationArgumentConstant {
		return emptyStringConstant
	}
	return lastArgument
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandLabel := string(command.Name)
	if len(command.Details.Arguments) > 0 {
		commandLabel = fmt.Sprintf("%s %s", commandLabel, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	workingDirectorySuffix := formatter.formatWorkingDirectorySuffix(command)
	return fmt.Sprintf(commandLabelTemplateConstant, commandLabel, workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatWorkingDirectorySuffix(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}
