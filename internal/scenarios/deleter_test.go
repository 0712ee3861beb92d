package scenarios_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/internal/credentials"
	"github.com/tdejager/signing-tests/internal/prefixdev"
	"github.com/tdejager/signing-tests/internal/scenarios"
)

const (
	testTokenVariableNameConstant   = "PREFIX_API_KEY"
	testTokenValueConstant          = "delete-token-value"
	testEnvironmentFilePathConstant = ".env"
)

type stubCredentialResolver struct {
	token            string
	resolutionError  error
	recordedRequests []credentials.TokenRequest
}

func (resolver *stubCredentialResolver) ResolveToken(_ context.Context, request credentials.TokenRequest) (string, error) {
	resolver.recordedRequests = append(resolver.recordedRequests, request)
	if resolver.resolutionError != nil {
		return "", resolver.resolutionError
	}
	return resolver.token, nil
}

type stubChannelClient struct {
	repodataBySubdirectory map[string]prefixdev.Repodata
	fetchedSubdirectories  []string
	deleteRequests         []prefixdev.DeleteRequest
	failingFilename        string
	deleteFailure          error
}

func (client *stubChannelClient) FetchRepodata(_ context.Context, channelName string, subdirectory string) (prefixdev.Repodata, error) {
	client.fetchedSubdirectories = append(client.fetchedSubdirectories, subdirectory)
	return client.repodataBySubdirectory[subdirectory], nil
}

func (client *stubChannelClient) DeleteArtifact(_ context.Context, deleteRequest prefixdev.DeleteRequest) error {
	client.deleteRequests = append(client.deleteRequests, deleteRequest)
	if len(client.failingFilename) > 0 && deleteRequest.Filename == client.failingFilename {
		return client.deleteFailure
	}
	return nil
}

func newDeleteServiceForTest(testInstance *testing.T, channelClient scenarios.ChannelClient, credentialResolver credentials.TokenResolver) *scenarios.DeleteService {
	testInstance.Helper()

	deleteService, creationError := scenarios.NewDeleteService(scenarios.DeleteDependencies{
		ChannelClient:      channelClient,
		CredentialResolver: credentialResolver,
		Registry:           scenarios.NewDefaultRegistry(),
	})
	require.NoError(testInstance, creationError)

	return deleteService
}

func deleteOptionsForTarget(target string) scenarios.DeleteOptions {
	return scenarios.DeleteOptions{
		Target:              target,
		ChannelName:         testChannelNameConstant,
		EnvironmentFilePath: testEnvironmentFilePathConstant,
		TokenVariableName:   testTokenVariableNameConstant,
	}
}

func allSignedRepodataFixture() prefixdev.Repodata {
	return prefixdev.Repodata{
		Packages: map[string]prefixdev.PackageEntry{
			"all-signed-0.9.0-0.tar.bz2": {Name: "all-signed", Version: "0.9.0"},
		},
		PackagesConda: map[string]prefixdev.PackageEntry{
			"all-signed-2.0.0-h0_0.conda": {Name: "all-signed", Version: "2.0.0"},
			"all-signed-1.0.0-h0_0.conda": {Name: "all-signed", Version: "1.0.0"},
			"bystander-1.0.0-h0_0.conda":  {Name: "bystander", Version: "1.0.0"},
		},
	}
}

func TestDeleteServiceDeletesMatchingArtifactsInSortedOrder(testInstance *testing.T) {
	channelClient := &stubChannelClient{repodataBySubdirectory: map[string]prefixdev.Repodata{
		"noarch": allSignedRepodataFixture(),
	}}
	credentialResolver := &stubCredentialResolver{token: testTokenValueConstant}

	deleteService := newDeleteServiceForTest(testInstance, channelClient, credentialResolver)

	deleteReports, executionError := deleteService.Execute(context.Background(), deleteOptionsForTarget("all-signed"))
	require.NoError(testInstance, executionError)

	require.Len(testInstance, credentialResolver.recordedRequests, 1)
	require.Equal(testInstance, credentials.TokenRequest{
		EnvironmentFilePath: testEnvironmentFilePathConstant,
		VariableName:        testTokenVariableNameConstant,
	}, credentialResolver.recordedRequests[0])

	expectedFilenames := []string{
		"all-signed-0.9.0-0.tar.bz2",
		"all-signed-1.0.0-h0_0.conda",
		"all-signed-2.0.0-h0_0.conda",
	}

	require.Len(testInstance, channelClient.deleteRequests, len(expectedFilenames))
	for requestIndex, deleteRequest := range channelClient.deleteRequests {
		require.Equal(testInstance, testChannelNameConstant, deleteRequest.ChannelName)
		require.Equal(testInstance, "noarch", deleteRequest.Subdirectory)
		require.Equal(testInstance, expectedFilenames[requestIndex], deleteRequest.Filename)
		require.Equal(testInstance, testTokenValueConstant, deleteRequest.Token)
	}

	require.Len(testInstance, deleteReports, 1)
	require.Equal(testInstance, "all-signed", deleteReports[0].ScenarioName)
	require.Equal(testInstance, expectedFilenames, deleteReports[0].Filenames)
}

func TestDeleteServiceResolvesCredentialBeforeAnyNetworkCall(testInstance *testing.T) {
	channelClient := &stubChannelClient{repodataBySubdirectory: map[string]prefixdev.Repodata{
		"noarch": allSignedRepodataFixture(),
	}}
	credentialResolver := &stubCredentialResolver{
		resolutionError: credentials.MissingCredentialError{VariableName: testTokenVariableNameConstant},
	}

	deleteService := newDeleteServiceForTest(testInstance, channelClient, credentialResolver)

	_, executionError := deleteService.Execute(context.Background(), deleteOptionsForTarget("all-signed"))

	missingCredentialError := credentials.MissingCredentialError{}
	require.ErrorAs(testInstance, executionError, &missingCredentialError)
	require.Equal(testInstance, testTokenVariableNameConstant, missingCredentialError.VariableName)
	require.Empty(testInstance, channelClient.fetchedSubdirectories)
	require.Empty(testInstance, channelClient.deleteRequests)
}

func TestDeleteServiceAbortsRemainingDeletesOnFailure(testInstance *testing.T) {
	channelClient := &stubChannelClient{
		repodataBySubdirectory: map[string]prefixdev.Repodata{
			"noarch": allSignedRepodataFixture(),
		},
		failingFilename: "all-signed-0.9.0-0.tar.bz2",
		deleteFailure:   prefixdev.StatusError{Operation: prefixdev.OperationName("DeleteArtifact"), StatusCode: http.StatusInternalServerError},
	}
	credentialResolver := &stubCredentialResolver{token: testTokenValueConstant}

	deleteService := newDeleteServiceForTest(testInstance, channelClient, credentialResolver)

	_, executionError := deleteService.Execute(context.Background(), deleteOptionsForTarget("all-signed"))

	statusError := prefixdev.StatusError{}
	require.ErrorAs(testInstance, executionError, &statusError)
	require.Equal(testInstance, http.StatusInternalServerError, statusError.StatusCode)
	require.Len(testInstance, channelClient.deleteRequests, 1)
}

func TestDeleteServiceDryRunPlansWithoutDeleting(testInstance *testing.T) {
	channelClient := &stubChannelClient{repodataBySubdirectory: map[string]prefixdev.Repodata{
		"noarch": allSignedRepodataFixture(),
	}}
	credentialResolver := &stubCredentialResolver{token: testTokenValueConstant}

	deleteService := newDeleteServiceForTest(testInstance, channelClient, credentialResolver)

	deleteOptions := deleteOptionsForTarget("all-signed")
	deleteOptions.DryRun = true

	deleteReports, executionError := deleteService.Execute(context.Background(), deleteOptions)
	require.NoError(testInstance, executionError)

	require.Len(testInstance, credentialResolver.recordedRequests, 1)
	require.Empty(testInstance, channelClient.deleteRequests)
	require.Len(testInstance, deleteReports, 1)
	require.Len(testInstance, deleteReports[0].Filenames, 3)
}

func TestDeleteServiceRejectsUnknownTarget(testInstance *testing.T) {
	channelClient := &stubChannelClient{}
	credentialResolver := &stubCredentialResolver{token: testTokenValueConstant}

	deleteService := newDeleteServiceForTest(testInstance, channelClient, credentialResolver)

	_, executionError := deleteService.Execute(context.Background(), deleteOptionsForTarget("mystery"))

	targetError := scenarios.UnknownTargetError{}
	require.ErrorAs(testInstance, executionError, &targetError)
	require.Empty(testInstance, credentialResolver.recordedRequests)
	require.Empty(testInstance, channelClient.fetchedSubdirectories)
}

type missingArtifactChannelServer struct {
	mutex         sync.Mutex
	repodataBody  string
	deletedPaths  []string
	repodataPaths []string
}

func (server *missingArtifactChannelServer) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	switch request.Method {
	case http.MethodGet:
		server.repodataPaths = append(server.repodataPaths, request.URL.Path)
		responseWriter.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(responseWriter, server.repodataBody)
	case http.MethodDelete:
		server.deletedPaths = append(server.deletedPaths, request.URL.Path)
		responseWriter.WriteHeader(http.StatusNotFound)
	default:
		responseWriter.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func TestDeleteServiceTreatsMissingArtifactsAsDeleted(testInstance *testing.T) {
	recordingServer := &missingArtifactChannelServer{
		repodataBody: `{"packages":{},"packages.conda":{"all-signed-1.0.0-h0_0.conda":{"name":"all-signed","version":"1.0.0"},"all-signed-2.0.0-h0_0.conda":{"name":"all-signed","version":"2.0.0"}}}`,
	}
	testServer := httptest.NewServer(recordingServer)
	defer testServer.Close()

	channelService, serviceError := prefixdev.NewChannelService(
		zap.NewNop(),
		testServer.Client(),
		prefixdev.ServiceConfiguration{BaseURL: testServer.URL},
	)
	require.NoError(testInstance, serviceError)

	deleteService := newDeleteServiceForTest(testInstance, channelService, &stubCredentialResolver{token: testTokenValueConstant})

	deleteReports, executionError := deleteService.Execute(context.Background(), deleteOptionsForTarget("all-signed"))
	require.NoError(testInstance, executionError)

	require.Len(testInstance, deleteReports, 1)
	require.Equal(testInstance, []string{"all-signed-1.0.0-h0_0.conda", "all-signed-2.0.0-h0_0.conda"}, deleteReports[0].Filenames)
	require.Len(testInstance, recordingServer.deletedPaths, 2)
	require.Contains(testInstance, recordingServer.deletedPaths[0], "/api/v1/delete/signing-tests/noarch/")
}

func TestDeleteServiceValidatesOptions(testInstance *testing.T) {
	testCases := []struct {
		name              string
		mutate            func(options *scenarios.DeleteOptions)
		expectedFieldName string
	}{
		{
			name:              "requires_target",
			mutate:            func(options *scenarios.DeleteOptions) { options.Target = "" },
			expectedFieldName: "target",
		},
		{
			name:              "requires_channel_name",
			mutate:            func(options *scenarios.DeleteOptions) { options.ChannelName = "" },
			expectedFieldName: "channel_name",
		},
		{
			name:              "requires_token_variable",
			mutate:            func(options *scenarios.DeleteOptions) { options.TokenVariableName = "" },
			expectedFieldName: "token_variable",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(subtestNameTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			deleteService := newDeleteServiceForTest(subtest, &stubChannelClient{}, &stubCredentialResolver{token: testTokenValueConstant})

			deleteOptions := deleteOptionsForTarget("all-signed")
			testCase.mutate(&deleteOptions)

			_, executionError := deleteService.Execute(context.Background(), deleteOptions)

			inputError := scenarios.InvalidInputError{}
			require.ErrorAs(subtest, executionError, &inputError)
			require.Equal(subtest, testCase.expectedFieldName, inputError.FieldName)
		})
	}
}

func TestNewDeleteServiceValidation(testInstance *testing.T) {
	testCases := []struct {
		name            string
		dependencies    scenarios.DeleteDependencies
		expectedMessage string
	}{
		{
			name: "requires_channel_client",
			dependencies: scenarios.DeleteDependencies{
				CredentialResolver: &stubCredentialResolver{},
				Registry:           scenarios.NewDefaultRegistry(),
			},
			expectedMessage: "channel client not configured",
		},
		{
			name: "requires_credential_resolver",
			dependencies: scenarios.DeleteDependencies{
				ChannelClient: &stubChannelClient{},
				Registry:      scenarios.NewDefaultRegistry(),
			},
			expectedMessage: "credential resolver not configured",
		},
		{
			name: "requires_registry",
			dependencies: scenarios.DeleteDependencies{
				ChannelClient:      &stubChannelClient{},
				CredentialResolver: &stubCredentialResolver{},
			},
			expectedMessage: "scenario registry not configured",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(subtestNameTemplateConstant, testCaseIndex, testCase.name), func(subtest *testing.T) {
			deleteService, creationError := scenarios.NewDeleteService(testCase.dependencies)

			require.Nil(subtest, deleteService)
			require.EqualError(subtest, creationError, testCase.expectedMessage)
		})
	}
}
