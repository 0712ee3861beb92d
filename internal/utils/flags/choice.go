// Package flags provides helpers for declaring choice usage strings and toggle flags on Cobra commands.
package flags

import (
	"fmt"
	"strings"
)

const (
	choiceListOpenerConstant           = "<"
	choiceListCloserConstant           = ">"
	choiceListSeparatorConstant        = "|"
	flagUsageBareTemplateConstant      = "`%s`"
	flagUsageDescribedTemplateConstant = "`%s` %s"
)

// FormatChoiceUsage renders a usage string listing the accepted values with the
// default choice upper-cased, as in "`<debug|INFO|warn|error>` Log verbosity.".
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	placeholder := choiceListOpenerConstant + strings.Join(renderChoiceList(defaultChoice, choices), choiceListSeparatorConstant) + choiceListCloserConstant

	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return fmt.Sprintf(flagUsageBareTemplateConstant, placeholder)
	}
	return fmt.Sprintf(flagUsageDescribedTemplateConstant, placeholder, trimmedDescription)
}

// renderChoiceList trims and deduplicates the choices in order, upper-casing
// the entry that matches the default choice.
func renderChoiceList(defaultChoice string, choices []string) []string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))

	renderedChoices := make([]string, 0, len(choices))
	seenChoices := make(map[string]struct{}, len(choices))
	for _, candidateChoice := range choices {
		trimmedChoice := strings.TrimSpace(candidateChoice)
		if len(trimmedChoice) == 0 {
			continue
		}

		normalizedChoice := strings.ToLower(trimmedChoice)
		if _, alreadySeen := seenChoices[normalizedChoice]; alreadySeen {
			continue
		}
		seenChoices[normalizedChoice] = struct{}{}

		if normalizedChoice == normalizedDefault {
			renderedChoices = append(renderedChoices, strings.ToUpper(trimmedChoice))
			continue
		}

		renderedChoices = append(renderedChoices, trimmedChoice)
	}

	return renderedChoices
}
