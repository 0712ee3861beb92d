package prefixdev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const (
	repodataEndpointTemplateConstant        = "%s/%s/%s/repodata.json"
	deleteEndpointTemplateConstant          = "%s/api/v1/delete/%s/%s/%s"
	authorizationHeaderNameConstant         = "Authorization"
	bearerTokenTemplateConstant             = "Bearer %s"
	loggerNotConfiguredMessageConstant      = "logger not configured"
	baseURLNotConfiguredMessageConstant     = "service base URL not configured"
	channelNameFieldNameConstant            = "channel_name"
	subdirectoryFieldNameConstant           = "subdirectory"
	filenameFieldNameConstant               = "filename"
	tokenFieldNameConstant                  = "token"
	requiredValueMessageConstant            = "value required"
	operationErrorMessageTemplateConstant   = "%s operation failed"
	operationErrorWithCauseTemplateConstant = "%s operation failed: %s"
	responseDecodingErrorTemplateConstant   = "%s response decoding failed: %s"
	statusErrorTemplateConstant             = "%s operation failed with status %d"
	invalidInputErrorTemplateConstant       = "%s: %s"
	fetchRepodataOperationNameConstant      = OperationName("FetchRepodata")
	deleteArtifactOperationNameConstant     = OperationName("DeleteArtifact")
	fetchedIndexLogMessageConstant          = "fetched channel index"
	deletedArtifactLogMessageConstant       = "deleted artifact"
	artifactAlreadyAbsentLogMessageConstant = "artifact already absent"
	channelLogFieldNameConstant             = "channel"
	subdirectoryLogFieldNameConstant        = "subdirectory"
	filenameLogFieldNameConstant            = "filename"
	packageCountLogFieldNameConstant        = "package_count"
)

// OperationName describes a named channel API workflow supported by the service.
type OperationName string

// HTTPClient abstracts HTTP execution for testability.
type HTTPClient interface {
	Do(request *http.Request) (*http.Response, error)
}

// ServiceConfiguration controls channel service behavior.
type ServiceConfiguration struct {
	BaseURL string
}

// PackageEntry describes one artifact listed in the channel index.
type PackageEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Repodata models the subset of the channel index consumed by this tool.
type Repodata struct {
	Packages      map[string]PackageEntry `json:"packages"`
	PackagesConda map[string]PackageEntry `json:"packages.conda"`
}

// DeleteRequest identifies one artifact to remove from the channel.
type DeleteRequest struct {
	ChannelName  string
	Subdirectory string
	Filename     string
	Token        string
}

// Sentinel errors reported during service construction.
var (
	ErrLoggerNotConfigured  = errors.New(loggerNotConfiguredMessageConstant)
	ErrBaseURLNotConfigured = errors.New(baseURLNotConfiguredMessageConstant)
)

// InvalidInputError surfaces validation issues for operation inputs.
type InvalidInputError struct {
	FieldName string
	Message   string
}

// Error describes the invalid input.
func (inputError InvalidInputError) Error() string {
	return fmt.Sprintf(invalidInputErrorTemplateConstant, inputError.FieldName, inputError.Message)
}

// OperationError wraps transport failures for channel API operations.
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

// ResponseDecodingError indicates JSON decoding failures.
type ResponseDecodingError struct {
	Operation OperationName
	Cause     error
}

// Error describes the decoding failure.
func (decodingError ResponseDecodingError) Error() string {
	return fmt.Sprintf(responseDecodingErrorTemplateConstant, decodingError.Operation, decodingError.Cause)
}

// Unwrap exposes the underlying JSON error.
func (decodingError ResponseDecodingError) Unwrap() error {
	return decodingError.Cause
}

// StatusError indicates the service answered with an unexpected HTTP status.
type StatusError struct {
	Operation  OperationName
	StatusCode int
}

// Error describes the unexpected status.
func (statusError StatusError) Error() string {
	return fmt.Sprintf(statusErrorTemplateConstant, statusError.Operation, statusError.StatusCode)
}

// ChannelService performs channel index and artifact deletion calls.
type ChannelService struct {
	logger     *zap.Logger
	httpClient HTTPClient
	baseURL    string
}

// NewChannelService constructs a channel service. A nil HTTP client falls back
// to http.DefaultClient.
func NewChannelService(logger *zap.Logger, httpClient HTTPClient, configuration ServiceConfiguration) (*ChannelService, error) {
	if logger == nil {
		return nil, ErrLoggerNotConfigured
	}

	trimmedBaseURL := strings.TrimRight(strings.TrimSpace(configuration.BaseURL), "/")
	if len(trimmedBaseURL) == 0 {
		return nil, ErrBaseURLNotConfigured
	}

	resolvedHTTPClient := httpClient
	if resolvedHTTPClient == nil {
		resolvedHTTPClient = http.DefaultClient
	}

	return &ChannelService{
		logger:     logger,
		httpClient: resolvedHTTPClient,
		baseURL:    trimmedBaseURL,
	}, nil
}

// FetchRepodata retrieves the channel index for one platform subdirectory.
func (service *ChannelService) FetchRepodata(executionContext context.Context, channelName string, subdirectory string) (Repodata, error) {
	trimmedChannelName := strings.TrimSpace(channelName)
	if len(trimmedChannelName) == 0 {
		return Repodata{}, InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedSubdirectory := strings.TrimSpace(subdirectory)
	if len(trimmedSubdirectory) == 0 {
		return Repodata{}, InvalidInputError{FieldName: subdirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpointURL := fmt.Sprintf(repodataEndpointTemplateConstant, service.baseURL, trimmedChannelName, trimmedSubdirectory)
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodGet, endpointURL, nil)
	if requestError != nil {
		return Repodata{}, OperationError{Operation: fetchRepodataOperationNameConstant, Cause: requestError}
	}

	response, transportError := service.httpClient.Do(request)
	if transportError != nil {
		return Repodata{}, OperationError{Operation: fetchRepodataOperationNameConstant, Cause: transportError}
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return Repodata{}, StatusError{Operation: fetchRepodataOperationNameConstant, StatusCode: response.StatusCode}
	}

	repodata := Repodata{}
	if decodingError := json.NewDecoder(response.Body).Decode(&repodata); decodingError != nil {
		return Repodata{}, ResponseDecodingError{Operation: fetchRepodataOperationNameConstant, Cause: decodingError}
	}

	service.logger.Debug(
		fetchedIndexLogMessageConstant,
		zap.String(channelLogFieldNameConstant, trimmedChannelName),
		zap.String(subdirectoryLogFieldNameConstant, trimmedSubdirectory),
		zap.Int(packageCountLogFieldNameConstant, len(repodata.Packages)+len(repodata.PackagesConda)),
	)

	return repodata, nil
}

// DeleteArtifact removes one artifact from the channel. A 404 response is
// treated as success so repeated deletes stay idempotent.
func (service *ChannelService) DeleteArtifact(executionContext context.Context, deleteRequest DeleteRequest) error {
	trimmedChannelName := strings.TrimSpace(deleteRequest.ChannelName)
	if len(trimmedChannelName) == 0 {
		return InvalidInputError{FieldName: channelNameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedSubdirectory := strings.TrimSpace(deleteRequest.Subdirectory)
	if len(trimmedSubdirectory) == 0 {
		return InvalidInputError{FieldName: subdirectoryFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedFilename := strings.TrimSpace(deleteRequest.Filename)
	if len(trimmedFilename) == 0 {
		return InvalidInputError{FieldName: filenameFieldNameConstant, Message: requiredValueMessageConstant}
	}

	trimmedToken := strings.TrimSpace(deleteRequest.Token)
	if len(trimmedToken) == 0 {
		return InvalidInputError{FieldName: tokenFieldNameConstant, Message: requiredValueMessageConstant}
	}

	endpointURL := fmt.Sprintf(deleteEndpointTemplateConstant, service.baseURL, trimmedChannelName, trimmedSubdirectory, trimmedFilename)
	request, requestError := http.NewRequestWithContext(executionContext, http.MethodDelete, endpointURL, nil)
	if requestError != nil {
		return OperationError{Operation: deleteArtifactOperationNameConstant, Cause: requestError}
	}
	request.Header.Set(authorizationHeaderNameConstant, fmt.Sprintf(bearerTokenTemplateConstant, trimmedToken))

	response, transportError := service.httpClient.Do(request)
	if transportError != nil {
		return OperationError{Operation: deleteArtifactOperationNameConstant, Cause: transportError}
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNotFound {
		service.logger.Debug(
			artifactAlreadyAbsentLogMessageConstant,
			zap.String(channelLogFieldNameConstant, trimmedChannelName),
			zap.String(subdirectoryLogFieldNameConstant, trimmedSubdirectory),
			zap.String(filenameLogFieldNameConstant, trimmedFilename),
		)
		return nil
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return StatusError{Operation: deleteArtifactOperationNameConstant, StatusCode: response.StatusCode}
	}

	service.logger.Debug(
		deletedArtifactLogMessageConstant,
		zap.String(channelLogFieldNameConstant, trimmedChannelName),
		zap.String(subdirectoryLogFieldNameConstant, trimmedSubdirectory),
		zap.String(filenameLogFieldNameConstant, trimmedFilename),
	)

	return nil
}
