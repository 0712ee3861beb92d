package flags

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

const (
	toggleEnabledCanonicalConstant     = "true"
	toggleDisabledCanonicalConstant    = "false"
	toggleEnabledPlaceholderConstant   = "<YES|no>"
	toggleDisabledPlaceholderConstant  = "<yes|NO>"
	toggleValueTypeNameConstant        = "bool"
	toggleInvalidValueTemplateConstant = "invalid toggle value %q"
	argumentListTerminatorConstant     = "--"
	longFlagPrefixConstant             = "--"
	shortFlagPrefixConstant            = "-"
	flagValueSeparatorConstant         = "="
)

var toggleLiteralValues = buildToggleLiteralValues()

func buildToggleLiteralValues() map[string]bool {
	enabledSpellings := []string{toggleEnabledCanonicalConstant, "t", "yes", "y", "on", "1"}
	disabledSpellings := []string{toggleDisabledCanonicalConstant, "f", "no", "n", "off", "0"}

	literalValues := make(map[string]bool, len(enabledSpellings)+len(disabledSpellings))
	for _, spelling := range enabledSpellings {
		literalValues[spelling] = true
	}
	for _, spelling := range disabledSpellings {
		literalValues[spelling] = false
	}
	return literalValues
}

// toggleFlagRegistry remembers which flag names take yes/no values so argument
// normalization can tell toggles apart from ordinary flags.
type toggleFlagRegistry struct {
	mutex      sync.RWMutex
	names      map[string]struct{}
	shorthands map[string]struct{}
}

var registeredToggleFlags = &toggleFlagRegistry{
	names:      map[string]struct{}{},
	shorthands: map[string]struct{}{},
}

func (registry *toggleFlagRegistry) register(name string, shorthand string) {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	registry.names[name] = struct{}{}
	if len(shorthand) > 0 {
		registry.shorthands[shorthand] = struct{}{}
	}
}

func (registry *toggleFlagRegistry) hasName(name string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	_, registered := registry.names[name]
	return registered
}

func (registry *toggleFlagRegistry) hasShorthand(shorthand string) bool {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	_, registered := registry.shorthands[shorthand]
	return registered
}

// AddToggleFlag registers a yes/no style boolean flag on the flag set. A bare
// --name enables the flag; explicit values accept true/false, yes/no, on/off,
// 1/0 and their single letter forms, in any casing.
func AddToggleFlag(flagSet *pflag.FlagSet, target *bool, name string, shorthand string, defaultValue bool, usage string) {
	if flagSet == nil || len(name) == 0 {
		return
	}

	value := newToggleValue(defaultValue, target)
	if len(shorthand) > 0 {
		flagSet.VarP(value, name, shorthand, usage)
	} else {
		flagSet.Var(value, name, usage)
	}

	registeredFlag := flagSet.Lookup(name)
	if registeredFlag == nil {
		return
	}
	registeredFlag.NoOptDefVal = toggleEnabledCanonicalConstant
	registeredFlag.Usage = formatToggleUsage(usage, defaultValue)

	registeredToggleFlags.register(name, shorthand)
}

func formatToggleUsage(description string, defaultValue bool) string {
	placeholder := toggleDisabledPlaceholderConstant
	if defaultValue {
		placeholder = toggleEnabledPlaceholderConstant
	}

	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(flagUsageBareTemplateConstant, placeholder)
	}
	return fmt.Sprintf(flagUsageDescribedTemplateConstant, placeholder, trimmedDescription)
}

// NormalizeToggleArguments rewrites "--flag value" and "-f value" pairs into
// the "--flag=value" form for registered toggle flags so that bare values are
// not mistaken for positional arguments.
func NormalizeToggleArguments(arguments []string) []string {
	if len(arguments) == 0 {
		return nil
	}

	normalized := make([]string, 0, len(arguments))
	for index := 0; index < len(arguments); index++ {
		currentArgument := arguments[index]
		if currentArgument == argumentListTerminatorConstant {
			normalized = append(normalized, arguments[index:]...)
			break
		}

		if !referencesToggleFlag(currentArgument) || strings.Contains(currentArgument, flagValueSeparatorConstant) {
			normalized = append(normalized, currentArgument)
			continue
		}

		if index+1 < len(arguments) && !strings.HasPrefix(arguments[index+1], shortFlagPrefixConstant) {
			normalized = append(normalized, currentArgument+flagValueSeparatorConstant+arguments[index+1])
			index++
			continue
		}

		normalized = append(normalized, currentArgument)
	}

	return normalized
}

// referencesToggleFlag reports whether the argument names a registered toggle
// flag in long or shorthand form, with or without an attached value.
func referencesToggleFlag(argument string) bool {
	if longName, isLong := strings.CutPrefix(argument, longFlagPrefixConstant); isLong {
		flagName, _, _ := strings.Cut(longName, flagValueSeparatorConstant)
		return len(flagName) > 0 && registeredToggleFlags.hasName(flagName)
	}
	if shortName, isShort := strings.CutPrefix(argument, shortFlagPrefixConstant); isShort {
		shorthand, _, _ := strings.Cut(shortName, flagValueSeparatorConstant)
		return len(shorthand) == 1 && registeredToggleFlags.hasShorthand(shorthand)
	}
	return false
}

type toggleValue struct {
	enabled bool
	target  *bool
}

func newToggleValue(defaultValue bool, target *bool) *toggleValue {
	if target != nil {
		*target = defaultValue
	}
	return &toggleValue{enabled: defaultValue, target: target}
}

func (value *toggleValue) Set(rawValue string) error {
	parsedValue, parseError := parseToggleLiteral(rawValue)
	if parseError != nil {
		return parseError
	}

	value.enabled = parsedValue
	if value.target != nil {
		*value.target = parsedValue
	}
	return nil
}

func (value *toggleValue) String() string {
	if value != nil && value.enabled {
		return toggleEnabledCanonicalConstant
	}
	return toggleDisabledCanonicalConstant
}

func (value *toggleValue) Type() string {
	return toggleValueTypeNameConstant
}

func parseToggleLiteral(rawValue string) (bool, error) {
	trimmedValue := strings.TrimSpace(rawValue)
	if len(trimmedValue) == 0 {
		return true, nil
	}

	parsedValue, recognized := toggleLiteralValues[strings.ToLower(trimmedValue)]
	if !recognized {
		return false, fmt.Errorf(toggleInvalidValueTemplateConstant, rawValue)
	}
	return parsedValue, nil
}
