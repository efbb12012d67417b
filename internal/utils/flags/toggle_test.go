package flags_test

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/utils/flags"
)

const (
	toggleFlagNameConstant  = "first-run"
	toggleFlagUsageConstant = "Upload every layer"
)

func TestAddToggleFlagParsesValues(testInstance *testing.T) {
	testCases := []struct {
		name            string
		defaultValue    bool
		arguments       []string
		expectedValue   bool
		expectedChanged bool
		expectedRemains []string
	}{
		{name: "default_true", defaultValue: true, arguments: []string{}, expectedValue: true},
		{name: "implicit_true", arguments: []string{"--first-run"}, expectedValue: true, expectedChanged: true},
		{name: "separate_no", defaultValue: true, arguments: []string{"--first-run", "no"}, expectedValue: false, expectedChanged: true},
		{name: "separate_uppercase_yes", arguments: []string{"--first-run", "YES"}, expectedValue: true, expectedChanged: true},
		{name: "inline_off", defaultValue: true, arguments: []string{"--first-run=off"}, expectedValue: false, expectedChanged: true},
		{name: "positional_kept", arguments: []string{"--first-run", "extra"}, expectedValue: true, expectedChanged: true, expectedRemains: []string{"extra"}},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			command := &cobra.Command{}
			var toggleValue bool
			flags.AddToggleFlag(command.Flags(), &toggleValue, toggleFlagNameConstant, testCase.defaultValue, toggleFlagUsageConstant)

			require.NoError(subTestInstance, command.ParseFlags(flags.NormalizeToggleArguments(testCase.arguments)))
			require.Equal(subTestInstance, testCase.expectedValue, toggleValue)
			require.Equal(subTestInstance, testCase.expectedChanged, command.Flags().Lookup(toggleFlagNameConstant).Changed)
			if testCase.expectedRemains == nil {
				require.Empty(subTestInstance, command.Flags().Args())
			} else {
				require.Equal(subTestInstance, testCase.expectedRemains, command.Flags().Args())
			}
		})
	}
}

func TestAddToggleFlagRejectsInvalidValues(testInstance *testing.T) {
	command := &cobra.Command{}
	var toggleValue bool
	flags.AddToggleFlag(command.Flags(), &toggleValue, toggleFlagNameConstant, false, toggleFlagUsageConstant)

	require.Error(testInstance, command.ParseFlags([]string{"--first-run=maybe"}))
	require.False(testInstance, toggleValue)
	require.False(testInstance, command.Flags().Lookup(toggleFlagNameConstant).Changed)
}

func TestAddToggleFlagDescribesDefault(testInstance *testing.T) {
	command := &cobra.Command{}
	var toggleValue bool
	flags.AddToggleFlag(command.Flags(), &toggleValue, toggleFlagNameConstant, true, toggleFlagUsageConstant)

	require.Equal(testInstance, "`<YES|no>` Upload every layer", command.Flags().Lookup(toggleFlagNameConstant).Usage)
}

func TestNormalizeToggleArgumentsStopsAtTerminator(testInstance *testing.T) {
	command := &cobra.Command{}
	var toggleValue bool
	flags.AddToggleFlag(command.Flags(), &toggleValue, toggleFlagNameConstant, false, toggleFlagUsageConstant)

	normalized := flags.NormalizeToggleArguments([]string{"--", "--first-run", "no"})
	require.Equal(testInstance, []string{"--", "--first-run", "no"}, normalized)
	require.Nil(testInstance, flags.NormalizeToggleArguments(nil))
}
