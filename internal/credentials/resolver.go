package credentials

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	variableNameMissingErrorMessageConstant  = "credential variable name must be provided"
	environmentFileReadErrorTemplateConstant = "unable to load environment file %s: %w"
	environmentStoreErrorTemplateConstant    = "unable to store environment variable %s: %w"
	missingCredentialErrorTemplateConstant   = "environment variable %s is not set"
)

// TokenRequest specifies where a credential token should be resolved from.
type TokenRequest struct {
	EnvironmentFilePath string
	VariableName        string
}

// TokenResolver loads dotenv-style files and resolves API tokens from the environment.
type TokenResolver interface {
	ResolveToken(resolutionContext context.Context, request TokenRequest) (string, error)
}

// EnvironmentLookup obtains an environment variable value.
type EnvironmentLookup func(key string) (string, bool)

// EnvironmentSetter stores an environment variable value.
type EnvironmentSetter func(key string, value string) error

// MissingCredentialError reports an absent or empty credential variable.
type MissingCredentialError struct {
	VariableName string
}

// Error names the variable that could not be resolved.
func (failure MissingCredentialError) Error() string {
	return fmt.Sprintf(missingCredentialErrorTemplateConstant, failure.VariableName)
}

// NewTokenResolver creates a token resolver with optional dependency overrides.
func NewTokenResolver(environmentLookup EnvironmentLookup, environmentSetter EnvironmentSetter) TokenResolver {
	resolvedEnvironmentLookup := environmentLookup
	if resolvedEnvironmentLookup == nil {
		resolvedEnvironmentLookup = os.LookupEnv
	}

	resolvedEnvironmentSetter := environmentSetter
	if resolvedEnvironmentSetter == nil {
		resolvedEnvironmentSetter = os.Setenv
	}

	return &tokenResolver{
		environmentLookup: resolvedEnvironmentLookup,
		environmentSetter: resolvedEnvironmentSetter,
	}
}

type tokenResolver struct {
	environmentLookup EnvironmentLookup
	environmentSetter EnvironmentSetter
}

// ResolveToken merges the environment file into the process environment without
// overriding existing values, then returns the requested variable.
func (resolver *tokenResolver) ResolveToken(resolutionContext context.Context, request TokenRequest) (string, error) {
	_ = resolutionContext

	trimmedVariableName := strings.TrimSpace(request.VariableName)
	if len(trimmedVariableName) == 0 {
		return "", errors.New(variableNameMissingErrorMessageConstant)
	}

	mergeError := resolver.mergeEnvironmentFile(request.EnvironmentFilePath)
	if mergeError != nil {
		return "", mergeError
	}

	value, found := resolver.environmentLookup(trimmedVariableName)
	if !found {
		return "", MissingCredentialError{VariableName: trimmedVariableName}
	}

	trimmedValue := strings.TrimSpace(value)
	if len(trimmedValue) == 0 {
		return "", MissingCredentialError{VariableName: trimmedVariableName}
	}

	return trimmedValue, nil
}

func (resolver *tokenResolver) mergeEnvironmentFile(environmentFilePath string) error {
	trimmedPath := strings.TrimSpace(environmentFilePath)
	if len(trimmedPath) == 0 {
		return nil
	}

	fileValues, readError := godotenv.Read(trimmedPath)
	if readError != nil {
		if errors.Is(readError, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf(environmentFileReadErrorTemplateConstant, trimmedPath, readError)
	}

	for variableKey, variableValue := range fileValues {
		if _, alreadySet := resolver.environmentLookup(variableKey); alreadySet {
			continue
		}
		if storeError := resolver.environmentSetter(variableKey, variableValue); storeError != nil {
			return fmt.Errorf(environmentStoreErrorTemplateConstant, variableKey, storeError)
		}
	}

	return nil
}
