package cli_test

import (
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/tdejager/signing-tests/cmd/cli"
)

const (
	testChannelBaseURLConstant             = "https://beta.prefix.dev"
	testChannelNameConstant                = "signing-tests"
	testTokenVariableNameConstant          = "SIGNING_TESTS_TOKEN"
	testTokenValueConstant                 = "cli-token-value"
	testAlternateTokenVariableNameConstant = "SIGNING_TESTS_ALTERNATE_TOKEN"
	testAlternateTokenValueConstant        = "alternate-token-value"
	testAbsentTokenVariableNameConstant    = "SIGNING_TESTS_ABSENT_TOKEN"
	allSignedRepodataPathConstant          = "/signing-tests/noarch/repodata.json"

	allSignedChannelRepodataJSONConstant = `{
  "packages": {},
  "packages.conda": {
    "all-signed-1.0.0-h4c9afc0_0.conda": {"name": "all-signed", "version": "1.0.0"},
    "all-signed-2.0.0-h4c9afc0_0.conda": {"name": "all-signed", "version": "2.0.0"},
    "bystander-1.0.0-h4c9afc0_0.conda": {"name": "bystander", "version": "1.0.0"}
  }
}`

	statusChannelRepodataJSONConstant = `{
  "packages": {},
  "packages.conda": {
    "all-signed-0.9.0-h4c9afc0_0.conda": {"name": "all-signed", "version": "0.9.0"},
    "all-signed-1.2.0-h4c9afc0_0.conda": {"name": "all-signed", "version": "1.2.0"},
    "all-signed-1.10.0-h4c9afc0_0.conda": {"name": "all-signed", "version": "1.10.0"},
    "bystander-9.9.9-h4c9afc0_0.conda": {"name": "bystander", "version": "9.9.9"}
  }
}`
)

type recordedChannelRequest struct {
	method        string
	path          string
	authorization string
}

type scenarioChannelServer struct {
	mutex            sync.Mutex
	repodataByPath   map[string]string
	deleteStatusCode int
	requests         []recordedChannelRequest
}

func (server *scenarioChannelServer) ServeHTTP(responseWriter http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	server.requests = append(server.requests, recordedChannelRequest{
		method:        request.Method,
		path:          request.URL.Path,
		authorization: request.Header.Get("Authorization"),
	})
	repodataBody, repodataKnown := server.repodataByPath[request.URL.Path]
	deleteStatusCode := server.deleteStatusCode
	server.mutex.Unlock()

	if request.Method == http.MethodDelete {
		if deleteStatusCode == 0 {
			deleteStatusCode = http.StatusOK
		}
		responseWriter.WriteHeader(deleteStatusCode)
		return
	}

	if !repodataKnown {
		responseWriter.WriteHeader(http.StatusNotFound)
		return
	}

	responseWriter.Header().Set("Content-Type", "application/json")
	fmt.Fprint(responseWriter, repodataBody)
}

func (server *scenarioChannelServer) recordedRequests() []recordedChannelRequest {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	duplicatedRequests := make([]recordedChannelRequest, len(server.requests))
	copy(duplicatedRequests, server.requests)
	return duplicatedRequests
}

func (server *scenarioChannelServer) requestsWithMethod(method string) []recordedChannelRequest {
	var matchingRequests []recordedChannelRequest
	for _, recordedRequest := range server.recordedRequests() {
		if recordedRequest.method == method {
			matchingRequests = append(matchingRequests, recordedRequest)
		}
	}
	return matchingRequests
}

func nopLoggerProvider() *zap.Logger {
	return zap.NewNop()
}

func applicationConfigurationFixture(channelBaseURL string, recipesRoot string, outputRoot string) cli.ApplicationConfiguration {
	return cli.ApplicationConfiguration{
		Channel: cli.ChannelConfiguration{
			BaseURL: channelBaseURL,
			Name:    testChannelNameConstant,
		},
		Workspace: cli.WorkspaceConfiguration{
			RecipesRoot: recipesRoot,
			OutputRoot:  outputRoot,
		},
		Credentials: cli.CredentialConfiguration{
			TokenVariable: testTokenVariableNameConstant,
		},
	}
}
