package flags

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

const (
	choicePlaceholderTemplateConstant = "<%s>"
	choiceSeparatorConstant           = "|"
	choiceUsageTemplateConstant       = "`%s` %s"
	choiceTypeNameConstant            = "string"
	choiceParseErrorTemplateConstant  = "invalid value %q (allowed: %s)"
)

// AddChoiceFlag registers a string flag accepting only the listed choices, compared
// case-insensitively and stored in lower case.
func AddChoiceFlag(flagSet *pflag.FlagSet, target *string, name string, defaultChoice string, choices []string, description string) {
	if flagSet == nil || len(name) == 0 {
		return
	}
	normalizedChoices := normalizeChoices(choices)
	flagSet.Var(newChoiceValue(defaultChoice, normalizedChoices, target), name, FormatChoiceUsage(defaultChoice, normalizedChoices, description))
}

// FormatChoiceUsage renders a usage string whose placeholder lists the choices with the default in upper case.
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	displayed := make([]string, 0, len(choices))
	for _, choice := range normalizeChoices(choices) {
		if choice == normalizedDefault {
			choice = strings.ToUpper(choice)
		}
		displayed = append(displayed, choice)
	}
	placeholder := fmt.Sprintf(choicePlaceholderTemplateConstant, strings.Join(displayed, choiceSeparatorConstant))
	return strings.TrimSpace(fmt.Sprintf(choiceUsageTemplateConstant, placeholder, strings.TrimSpace(description)))
}

func normalizeChoices(choices []string) []string {
	normalized := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		candidate := strings.ToLower(strings.TrimSpace(choice))
		if len(candidate) == 0 {
			continue
		}
		if _, duplicate := seen[candidate]; duplicate {
			continue
		}
		seen[candidate] = struct{}{}
		normalized = append(normalized, candidate)
	}
	return normalized
}

type choiceValue struct {
	current string
	allowed []string
	target  *string
}

func newChoiceValue(defaultChoice string, allowed []string, target *string) *choiceValue {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	if target != nil {
		*target = normalizedDefault
	}
	return &choiceValue{current: normalizedDefault, allowed: allowed, target: target}
}

func (value *choiceValue) Set(rawValue string) error {
	candidate := strings.ToLower(strings.TrimSpace(rawValue))
	for _, allowed := range value.allowed {
		if candidate != allowed {
			continue
		}
		value.current = candidate
		if value.target != nil {
			*value.target = candidate
		}
		return nil
	}
	return fmt.Errorf(choiceParseErrorTemplateConstant, rawValue, strings.Join(value.allowed, choiceSeparatorConstant))
}

func (value *choiceValue) String() string {
	if value == nil {
		return ""
	}
	return value.current
}

func (value *choiceValue) Type() string {
	return choiceTypeNameConstant
}
