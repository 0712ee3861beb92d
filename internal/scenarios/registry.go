package scenarios

import (
	"fmt"
	"strings"
)

// AllScenariosTarget selects every registered scenario.
const AllScenariosTarget = "all"

const (
	allSignedScenarioNameConstant           = "all-signed"
	lastVersionUnsignedScenarioNameConstant = "last-version-unsigned"
	variantsUnsignedScenarioNameConstant    = "variants-unsigned"
	noarchSubdirectoryConstant              = "noarch"
	linuxSubdirectoryConstant               = "linux-64"
	lastVersionMarkerConstant               = "1.5.0"
	variantMarkerConstant                   = "py312"
	unknownTargetErrorTemplateConstant      = "unknown scenario %q (choose from: %s)"
	choiceSeparatorConstant                 = ", "
)

// UnknownTargetError reports a scenario target outside the registry.
type UnknownTargetError struct {
	Target       string
	ValidChoices []string
}

// Error lists the valid scenario choices.
func (targetError UnknownTargetError) Error() string {
	return fmt.Sprintf(unknownTargetErrorTemplateConstant, targetError.Target, strings.Join(targetError.ValidChoices, choiceSeparatorConstant))
}

// DefaultScenarios returns the signing test scenarios in their canonical
// order. The order is observable: the "all" target processes scenarios in
// exactly this sequence.
func DefaultScenarios() []Scenario {
	return []Scenario{
		{
			Name:                 allSignedScenarioNameConstant,
			PlatformSubdirectory: noarchSubdirectoryConstant,
			RecipeLayout:         RecipeLayoutVersioned,
			AttestationRule:      AttestationRule{Mode: AttestationModeAll},
		},
		{
			Name:                 lastVersionUnsignedScenarioNameConstant,
			PlatformSubdirectory: noarchSubdirectoryConstant,
			RecipeLayout:         RecipeLayoutVersioned,
			AttestationRule:      AttestationRule{Mode: AttestationModeAllExceptMarked, Marker: lastVersionMarkerConstant},
		},
		{
			Name:                 variantsUnsignedScenarioNameConstant,
			PlatformSubdirectory: linuxSubdirectoryConstant,
			RecipeLayout:         RecipeLayoutVariant,
			TargetPlatform:       linuxSubdirectoryConstant,
			AttestationRule:      AttestationRule{Mode: AttestationModeMarkedOnly, Marker: variantMarkerConstant},
		},
	}
}

// Registry holds scenarios in registration order.
type Registry struct {
	scenarios []Scenario
}

// NewRegistry builds a registry preserving the provided order.
func NewRegistry(registeredScenarios []Scenario) *Registry {
	return &Registry{scenarios: append([]Scenario(nil), registeredScenarios...)}
}

// NewDefaultRegistry builds a registry holding the canonical scenarios.
func NewDefaultRegistry() *Registry {
	return NewRegistry(DefaultScenarios())
}

// Names lists the registered scenario names in order.
func (registry *Registry) Names() []string {
	scenarioNames := make([]string, 0, len(registry.scenarios))
	for _, registeredScenario := range registry.scenarios {
		scenarioNames = append(scenarioNames, registeredScenario.Name)
	}
	return scenarioNames
}

// Resolve maps a target to scenarios. The literal "all" selects every
// registered scenario in order; anything else must match a registered name.
func (registry *Registry) Resolve(target string) ([]Scenario, error) {
	trimmedTarget := strings.TrimSpace(target)
	if trimmedTarget == AllScenariosTarget {
		return append([]Scenario(nil), registry.scenarios...), nil
	}

	for _, registeredScenario := range registry.scenarios {
		if registeredScenario.Name == trimmedTarget {
			return []Scenario{registeredScenario}, nil
		}
	}

	return nil, UnknownTargetError{
		Target:       trimmedTarget,
		ValidChoices: append(registry.Names(), AllScenariosTarget),
	}
}
