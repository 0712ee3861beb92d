package scenarios

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/prefixdev"
)

const (
	indexReaderMissingMessageConstant  = "channel index reader not configured"
	outputWriterMissingMessageConstant = "output writer not configured"
	statusWriteErrorTemplateConstant   = "unable to write status report: %w"
	statusLineTemplateConstant         = "%s (%s): %d artifacts, versions [%s], highest %s\n"
	statusEmptyLineTemplateConstant    = "%s (%s): no artifacts\n"
	versionSeparatorConstant           = ", "
)

// ChannelIndexReader is the prefixdev surface required for status reporting.
type ChannelIndexReader interface {
	FetchRepodata(executionContext context.Context, channelName string, subdirectory string) (prefixdev.Repodata, error)
}

// Sentinel errors reported during status service construction.
var (
	errIndexReaderMissing  = errors.New(indexReaderMissingMessageConstant)
	errOutputWriterMissing = errors.New(outputWriterMissingMessageConstant)
)

// StatusDependencies describes required collaborators for status reporting.
type StatusDependencies struct {
	Logger       *zap.Logger
	IndexReader  ChannelIndexReader
	Registry     *Registry
	OutputWriter io.Writer
}

// StatusOptions configures one status run.
type StatusOptions struct {
	Target      string
	ChannelName string
}

// ScenarioStatusReport summarizes the channel contents of one scenario.
type ScenarioStatusReport struct {
	ScenarioName   string
	Subdirectory   string
	ArtifactCount  int
	Versions       []string
	HighestVersion string
}

// StatusService reports what each scenario currently has on the channel.
// Read-only; requires no credential.
type StatusService struct {
	logger       *zap.Logger
	indexReader  ChannelIndexReader
	registry     *Registry
	outputWriter io.Writer
}

// NewStatusService constructs a StatusService with the provided dependencies.
func NewStatusService(dependencies StatusDependencies) (*StatusService, error) {
	if dependencies.IndexReader == nil {
		return nil, errIndexReaderMissing
	}
	if dependencies.Registry == nil {
		return nil, errRegistryMissing
	}
	if dependencies.OutputWriter == nil {
		return nil, errOutputWriterMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusService{
		logger:       logger,
		indexReader:  dependencies.IndexReader,
		registry:     dependencies.Registry,
		outputWriter: dependencies.OutputWriter,
	}, nil
}

// Execute writes one report line per selected scenario and returns the
// collected reports.
func (service *StatusService) Execute(executionContext context.Context, options StatusOptions) ([]ScenarioStatusReport, error) {
	if validationError := validateStatusOptions(options); validationError != nil {
		return nil, validationError
	}

	selectedScenarios, resolveError := service.registry.Resolve(options.Target)
	if resolveError != nil {
		return nil, resolveError
	}

	statusReports := make([]ScenarioStatusReport, 0, len(selectedScenarios))
	for _, selectedScenario := range selectedScenarios {
		scenarioReport, scenarioError := service.reportScenario(executionContext, selectedScenario, options)
		if scenarioError != nil {
			return nil, fmt.Errorf(scenarioErrorTemplateConstant, selectedScenario.Name, scenarioError)
		}
		statusReports = append(statusReports, scenarioReport)
	}

	return statusReports, nil
}

func (service *StatusService) reportScenario(executionContext context.Context, selectedScenario Scenario, options StatusOptions) (ScenarioStatusReport, error) {
	repodata, fetchError := service.indexReader.FetchRepodata(executionContext, options.ChannelName, selectedScenario.PlatformSubdirectory)
	if fetchError != nil {
		return ScenarioStatusReport{}, fmt.Errorf(indexFetchErrorTemplateConstant, selectedScenario.PlatformSubdirectory, fetchError)
	}

	artifactCount, scenarioVersions := summarizeScenarioEntries(repodata, selectedScenario.Name)

	scenarioReport := ScenarioStatusReport{
		ScenarioName:  selectedScenario.Name,
		Subdirectory:  selectedScenario.PlatformSubdirectory,
		ArtifactCount: artifactCount,
		Versions:      scenarioVersions,
	}
	if len(scenarioVersions) > 0 {
		scenarioReport.HighestVersion = scenarioVersions[len(scenarioVersions)-1]
	}

	if writeError := service.writeReportLine(scenarioReport); writeError != nil {
		return ScenarioStatusReport{}, writeError
	}

	return scenarioReport, nil
}

func (service *StatusService) writeReportLine(scenarioReport ScenarioStatusReport) error {
	var writeError error
	if scenarioReport.ArtifactCount == 0 {
		_, writeError = fmt.Fprintf(
			service.outputWriter,
			statusEmptyLineTemplateConstant,
			scenarioReport.ScenarioName,
			scenarioReport.Subdirectory,
		)
	} else {
		_, writeError = fmt.Fprintf(
			service.outputWriter,
			statusLineTemplateConstant,
			scenarioReport.ScenarioName,
			scenarioReport.Subdirectory,
			scenarioReport.ArtifactCount,
			strings.Join(scenarioReport.Versions, versionSeparatorConstant),
			scenarioReport.HighestVersion,
		)
	}

	if writeError != nil {
		return fmt.Errorf(statusWriteErrorTemplateConstant, writeError)
	}
	return nil
}

// summarizeScenarioEntries counts the index entries belonging to the scenario
// and collects their distinct versions in ascending order.
func summarizeScenarioEntries(repodata prefixdev.Repodata, packageName string) (int, []string) {
	artifactCount := 0
	versionSet := map[string]struct{}{}

	for _, packageEntry := range repodata.Packages {
		if packageEntry.Name != packageName {
			continue
		}
		artifactCount++
		versionSet[packageEntry.Version] = struct{}{}
	}
	for _, packageEntry := range repodata.PackagesConda {
		if packageEntry.Name != packageName {
			continue
		}
		artifactCount++
		versionSet[packageEntry.Version] = struct{}{}
	}

	scenarioVersions := make([]string, 0, len(versionSet))
	for packageVersion := range versionSet {
		scenarioVersions = append(scenarioVersions, packageVersion)
	}
	sortVersions(scenarioVersions)

	return artifactCount, scenarioVersions
}

// sortVersions orders version strings ascending by semver, falling back to
// lexical comparison when either side does not parse.
func sortVersions(versionStrings []string) {
	sort.Slice(versionStrings, func(firstIndex int, secondIndex int) bool {
		return versionLess(versionStrings[firstIndex], versionStrings[secondIndex])
	})
}

func versionLess(firstVersionString string, secondVersionString string) bool {
	firstVersion, firstParseError := semver.NewVersion(firstVersionString)
	secondVersion, secondParseError := semver.NewVersion(secondVersionString)
	if firstParseError == nil && secondParseError == nil {
		return firstVersion.LessThan(secondVersion)
	}
	return firstVersionString < secondVersionString
}

func validateStatusOptions(options StatusOptions) error {
	if len(options.Target) == 0 {
		return InvalidInputError{FieldName: targetFieldNameConstant, Message: requiredValueMessageConstant}
	}
	if len(options.ChannelName) == 0 {
		return InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}
	return nil
}
