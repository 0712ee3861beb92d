package prefixdev_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/prefixdev"
)

const (
	testChannelNameConstant       = "signing-tests"
	testSubdirectoryConstant      = "noarch"
	testTokenConstant             = "prefix-token-value"
	testCondaFilenameConstant     = "example-1.0.0-h4c9afc0_0.conda"
	testLegacyFilenameConstant    = "legacy-0.9.0-0.tar.bz2"
	testPackageNameConstant       = "example"
	testPackageVersionConstant    = "1.0.0"
	testBaseURLConstant           = "https://beta.prefix.dev"
	testRepodataPayloadConstant   = `{"packages":{"legacy-0.9.0-0.tar.bz2":{"name":"legacy","version":"0.9.0"}},"packages.conda":{"example-1.0.0-h4c9afc0_0.conda":{"name":"example","version":"1.0.0"}}}`
	testMalformedPayloadConstant  = "{not json"
	expectedRepodataPathConstant  = "/signing-tests/noarch/repodata.json"
	expectedDeletePathConstant    = "/api/v1/delete/signing-tests/noarch/example-1.0.0-h4c9afc0_0.conda"
	expectedAuthorizationConstant = "Bearer prefix-token-value"
	subtestNameTemplateConstant   = "%d_%s"
)

type recordedChannelRequest struct {
	method        string
	path          string
	authorization string
}

type channelAPIServer struct {
	mutex            sync.Mutex
	statusCode       int
	payload          string
	recordedRequests []recordedChannelRequest
}

func (server *channelAPIServer) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	server.recordedRequests = append(server.recordedRequests, recordedChannelRequest{
		method:        request.Method,
		path:          request.URL.Path,
		authorization: request.Header.Get("Authorization"),
	})
	server.mutex.Unlock()

	if server.statusCode != 0 && server.statusCode != http.StatusOK {
		responseWriter.WriteHeader(server.statusCode)
		return
	}

	if len(server.payload) > 0 {
		responseWriter.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(responseWriter, server.payload)
	}
}

func (server *channelAPIServer) requests() []recordedChannelRequest {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]recordedChannelRequest(nil), server.recordedRequests...)
}

func newChannelServiceForServer(testInstance *testing.T, testServer *httptest.Server) *prefixdev.ChannelService {
	testInstance.Helper()

	channelService, creationError := prefixdev.NewChannelService(
		zap.NewNop(),
		testServer.Client(),
		prefixdev.ServiceConfiguration{BaseURL: testServer.URL},
	)
	require.NoError(testInstance, creationError)

	return channelService
}

func TestNewChannelServiceValidation(testInstance *testing.T) {
	testCases := []struct {
		name          string
		logger        *zap.Logger
		configuration prefixdev.ServiceConfiguration
		expectedError error
	}{
		{
			name:          "rejects_missing_logger",
			logger:        nil,
			configuration: prefixdev.ServiceConfiguration{BaseURL: testBaseURLConstant},
			expectedError: prefixdev.ErrLoggerNotConfigured,
		},
		{
			name:          "rejects_blank_base_url",
			logger:        zap.NewNop(),
			configuration: prefixdev.ServiceConfiguration{BaseURL: "   "},
			expectedError: prefixdev.ErrBaseURLNotConfigured,
		},
		{
			name:          "accepts_complete_configuration",
			logger:        zap.NewNop(),
			configuration: prefixdev.ServiceConfiguration{BaseURL: testBaseURLConstant},
			expectedError: nil,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(subtestNameTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			channelService, creationError := prefixdev.NewChannelService(testCase.logger, nil, testCase.configuration)

			if testCase.expectedError != nil {
				require.ErrorIs(subtest, creationError, testCase.expectedError)
				require.Nil(subtest, channelService)
				return
			}

			require.NoError(subtest, creationError)
			require.NotNil(subtest, channelService)
		})
	}
}

func TestChannelServiceFetchRepodata(testInstance *testing.T) {
	recordingServer := &channelAPIServer{payload: testRepodataPayloadConstant}
	testServer := httptest.NewServer(recordingServer)
	defer testServer.Close()

	channelService := newChannelServiceForServer(testInstance, testServer)

	repodata, fetchError := channelService.FetchRepodata(context.Background(), testChannelNameConstant, testSubdirectoryConstant)
	require.NoError(testInstance, fetchError)

	require.Len(testInstance, repodata.PackagesConda, 1)
	condaEntry, condaEntryFound := repodata.PackagesConda[testCondaFilenameConstant]
	require.True(testInstance, condaEntryFound)
	require.Equal(testInstance, testPackageNameConstant, condaEntry.Name)
	require.Equal(testInstance, testPackageVersionConstant, condaEntry.Version)

	require.Len(testInstance, repodata.Packages, 1)
	require.Contains(testInstance, repodata.Packages, testLegacyFilenameConstant)

	recordedRequests := recordingServer.requests()
	require.Len(testInstance, recordedRequests, 1)
	require.Equal(testInstance, http.MethodGet, recordedRequests[0].method)
	require.Equal(testInstance, expectedRepodataPathConstant, recordedRequests[0].path)
	require.Empty(testInstance, recordedRequests[0].authorization)
}

func TestChannelServiceFetchRepodataReportsUnexpectedStatus(testInstance *testing.T) {
	recordingServer := &channelAPIServer{statusCode: http.StatusInternalServerError}
	testServer := httptest.NewServer(recordingServer)
	defer testServer.Close()

	channelService := newChannelServiceForServer(testInstance, testServer)

	_, fetchError := channelService.FetchRepodata(context.Background(), testChannelNameConstant, testSubdirectoryConstant)

	statusError := prefixdev.StatusError{}
	require.ErrorAs(testInstance, fetchError, &statusError)
	require.Equal(testInstance, prefixdev.OperationName("FetchRepodata"), statusError.Operation)
	require.Equal(testInstance, http.StatusInternalServerError, statusError.StatusCode)
}

func TestChannelServiceFetchRepodataRejectsMalformedPayload(testInstance *testing.T) {
	recordingServer := &channelAPIServer{payload: testMalformedPayloadConstant}
	testServer := httptest.NewServer(recordingServer)
	defer testServer.Close()

	channelService := newChannelServiceForServer(testInstance, testServer)

	_, fetchError := channelService.FetchRepodata(context.Background(), testChannelNameConstant, testSubdirectoryConstant)

	decodingError := prefixdev.ResponseDecodingError{}
	require.ErrorAs(testInstance, fetchError, &decodingError)
	require.Equal(testInstance, prefixdev.OperationName("FetchRepodata"), decodingError.Operation)
}

func TestChannelServiceDeleteArtifactStatusHandling(testInstance *testing.T) {
	testCases := []struct {
		name               string
		responseStatusCode int
		expectStatusError  bool
	}{
		{
			name:               "accepts_success_status",
			responseStatusCode: http.StatusOK,
			expectStatusError:  false,
		},
		{
			name:               "treats_missing_artifact_as_success",
			responseStatusCode: http.StatusNotFound,
			expectStatusError:  false,
		},
		{
			name:               "reports_unexpected_status",
			responseStatusCode: http.StatusInternalServerError,
			expectStatusError:  true,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(subtestNameTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			recordingServer := &channelAPIServer{statusCode: testCase.responseStatusCode}
			testServer := httptest.NewServer(recordingServer)
			defer testServer.Close()

			channelService := newChannelServiceForServer(subtest, testServer)

			deleteError := channelService.DeleteArtifact(context.Background(), prefixdev.DeleteRequest{
				ChannelName:  testChannelNameConstant,
				Subdirectory: testSubdirectoryConstant,
				Filename:     testCondaFilenameConstant,
				Token:        testTokenConstant,
			})

			if testCase.expectStatusError {
				statusError := prefixdev.StatusError{}
				require.ErrorAs(subtest, deleteError, &statusError)
				require.Equal(subtest, prefixdev.OperationName("DeleteArtifact"), statusError.Operation)
				require.Equal(subtest, testCase.responseStatusCode, statusError.StatusCode)
			} else {
				require.NoError(subtest, deleteError)
			}

			recordedRequests := recordingServer.requests()
			require.Len(subtest, recordedRequests, 1)
			require.Equal(subtest, http.MethodDelete, recordedRequests[0].method)
			require.Equal(subtest, expectedDeletePathConstant, recordedRequests[0].path)
			require.Equal(subtest, expectedAuthorizationConstant, recordedRequests[0].authorization)
		})
	}
}

func TestChannelServiceValidatesInputs(testInstance *testing.T) {
	testCases := []struct {
		name              string
		operation         func(service *prefixdev.ChannelService) error
		expectedFieldName string
	}{
		{
			name: "fetch_requires_channel_name",
			operation: func(service *prefixdev.ChannelService) error {
				_, fetchError := service.FetchRepodata(context.Background(), "   ", testSubdirectoryConstant)
				return fetchError
			},
			expectedFieldName: "channel_name",
		},
		{
			name: "fetch_requires_subdirectory",
			operation: func(service *prefixdev.ChannelService) error {
				_, fetchError := service.FetchRepodata(context.Background(), testChannelNameConstant, "")
				return fetchError
			},
			expectedFieldName: "subdirectory",
		},
		{
			name: "delete_requires_filename",
			operation: func(service *prefixdev.ChannelService) error {
				return service.DeleteArtifact(context.Background(), prefixdev.DeleteRequest{
					ChannelName:  testChannelNameConstant,
					Subdirectory: testSubdirectoryConstant,
					Filename:     "   ",
					Token:        testTokenConstant,
				})
			},
			expectedFieldName: "filename",
		},
		{
			name: "delete_requires_token",
			operation: func(service *prefixdev.ChannelService) error {
				return service.DeleteArtifact(context.Background(), prefixdev.DeleteRequest{
					ChannelName:  testChannelNameConstant,
					Subdirectory: testSubdirectoryConstant,
					Filename:     testCondaFilenameConstant,
					Token:        "",
				})
			},
			expectedFieldName: "token",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(subtestNameTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			recordingServer := &channelAPIServer{}
			testServer := httptest.NewServer(recordingServer)
			defer testServer.Close()

			channelService := newChannelServiceForServer(subtest, testServer)

			operationError := testCase.operation(channelService)

			inputError := prefixdev.InvalidInputError{}
			require.ErrorAs(subtest, operationError, &inputError)
			require.Equal(subtest, testCase.expectedFieldName, inputError.FieldName)
			require.Empty(subtest, recordingServer.requests())
		})
	}
}
