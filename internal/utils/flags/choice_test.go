package flags_test

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/utils/flags"
)

const (
	choiceFlagNameConstant  = "log-format"
	choiceFlagUsageConstant = "Override the configured log format."
)

var testLogFormatChoices = []string{"structured", "console"}

func TestFormatChoiceUsage(testInstance *testing.T) {
	testCases := []struct {
		name           string
		defaultChoice  string
		choices        []string
		description    string
		expectedOutput string
	}{
		{
			name:           "default_first",
			defaultChoice:  "structured",
			choices:        testLogFormatChoices,
			description:    choiceFlagUsageConstant,
			expectedOutput: "`<STRUCTURED|console>` Override the configured log format.",
		},
		{
			name:           "default_second_mixed_case",
			defaultChoice:  "Console",
			choices:        []string{" Structured", "CONSOLE"},
			description:    choiceFlagUsageConstant,
			expectedOutput: "`<structured|CONSOLE>` Override the configured log format.",
		},
		{
			name:           "duplicates_and_blanks_dropped",
			defaultChoice:  "info",
			choices:        []string{"debug", "", "info", "DEBUG"},
			description:    "",
			expectedOutput: "`<debug|INFO>`",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			require.Equal(subTestInstance, testCase.expectedOutput, flags.FormatChoiceUsage(testCase.defaultChoice, testCase.choices, testCase.description))
		})
	}
}

func TestAddChoiceFlag(testInstance *testing.T) {
	testCases := []struct {
		name          string
		arguments     []string
		expectError   bool
		expectedValue string
	}{
		{name: "default_kept", arguments: []string{}, expectedValue: "structured"},
		{name: "accepts_choice", arguments: []string{"--log-format", "console"}, expectedValue: "console"},
		{name: "normalizes_case", arguments: []string{"--log-format=CONSOLE"}, expectedValue: "console"},
		{name: "rejects_unknown", arguments: []string{"--log-format", "xml"}, expectError: true, expectedValue: "structured"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			command := &cobra.Command{}
			var selected string
			flags.AddChoiceFlag(command.Flags(), &selected, choiceFlagNameConstant, "structured", testLogFormatChoices, choiceFlagUsageConstant)

			parseError := command.ParseFlags(testCase.arguments)
			if testCase.expectError {
				require.Error(subTestInstance, parseError)
			} else {
				require.NoError(subTestInstance, parseError)
			}
			require.Equal(subTestInstance, testCase.expectedValue, selected)
		})
	}
}
