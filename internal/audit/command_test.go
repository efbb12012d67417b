package audit_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/layeraudit/internal/audit"
	"github.com/temirov/layeraudit/internal/collector"
)

const (
	runSubcommandConstant              = "run"
	configSubcommandConstant           = "config"
	commandSubtestTemplateConstant     = "%d_%s"
	testRunIdentifierConstant          = "command-run"
	testDatabaseFileNameConstant       = "audit/layer_audit.db"
	testLogFilePatternConstant         = "audit_log_*.txt"
	invalidConfigurationPrefixConstant = "invalid audit configuration"
)

type commandHarness struct {
	configuration audit.CommandConfiguration
	fixture       *auditFixture
	output        *strings.Builder
}

func newCommandHarness(testInstance *testing.T) *commandHarness {
	testInstance.Helper()
	workingDirectory := testInstance.TempDir()
	configuration := audit.DefaultCommandConfiguration()
	configuration.WorkerCount = 2
	configuration.Environments = []audit.EnvironmentConfiguration{{
		Name:      testEnvironmentNameConstant,
		Kind:      string(collector.EnvironmentKindEnterprise),
		PortalURL: testPortalURLConstant,
	}}
	configuration.AuditTable = audit.AuditTableConfiguration{
		Driver: "sqlite",
		Path:   filepath.Join(workingDirectory, testDatabaseFileNameConstant),
	}
	configuration.LogDirectory = filepath.Join(workingDirectory, "logs")
	configuration.ExportDirectory = filepath.Join(workingDirectory, "exports")
	return &commandHarness{
		configuration: configuration,
		fixture:       newAuditFixture(testParcelsItemIDConstant, testRoadsItemIDConstant),
		output:        &strings.Builder{},
	}
}

func (harness *commandHarness) execute(instant fixedClock, arguments ...string) error {
	builder := audit.CommandBuilder{
		LoggerProvider:        func() *zap.Logger { return zap.NewNop() },
		ConfigurationProvider: func() audit.CommandConfiguration { return harness.configuration },
		EnvironmentFactory: func(_ context.Context, configurations []audit.EnvironmentConfiguration) ([]collector.Environment, error) {
			environments := harness.fixture.environments()
			if len(configurations) != len(environments) {
				return nil, fmt.Errorf("expected %d environments, got %d", len(environments), len(configurations))
			}
			return environments, nil
		},
		Clock:               instant,
		IdentifierGenerator: func() string { return testRunIdentifierConstant },
	}

	command, buildError := builder.Build()
	if buildError != nil {
		return buildError
	}
	command.SetContext(context.Background())
	command.SetArgs(arguments)
	harness.output.Reset()
	command.SetOut(harness.output)
	command.SetErr(harness.output)
	return command.Execute()
}

func TestCommandRunAuditsIntoLocalStore(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)

	executionError := harness.execute(fixedClock{instant: firstRunInstant}, runSubcommandConstant)
	require.NoError(testInstance, executionError)

	summaryLine := harness.output.String()
	require.Contains(testInstance, summaryLine, "FY25")
	require.Contains(testInstance, summaryLine, "(first run)")
	require.Contains(testInstance, summaryLine, "collected 2")
	require.Contains(testInstance, summaryLine, "uploaded 2 of 2")
	require.Contains(testInstance, summaryLine, testRunIdentifierConstant)

	_, statError := os.Stat(harness.configuration.AuditTable.Path)
	require.NoError(testInstance, statError)

	logFiles, globError := filepath.Glob(filepath.Join(harness.configuration.LogDirectory, testLogFilePatternConstant))
	require.NoError(testInstance, globError)
	require.Len(testInstance, logFiles, 1)
	logContent, readError := os.ReadFile(logFiles[0])
	require.NoError(testInstance, readError)
	require.Contains(testInstance, string(logContent), "Starting layer audit")
}

func TestCommandRunIncrementalExportsSkippedLayers(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)
	require.NoError(testInstance, harness.execute(fixedClock{instant: firstRunInstant}, runSubcommandConstant))

	executionError := harness.execute(fixedClock{instant: secondRunInstant}, runSubcommandConstant, "--first-run=no")
	require.NoError(testInstance, executionError)
	require.Contains(testInstance, harness.output.String(), "(incremental)")
	require.Contains(testInstance, harness.output.String(), "skipped unchanged 2")
	require.Contains(testInstance, harness.output.String(), "uploaded 0 of 0")

	exports, globError := filepath.Glob(filepath.Join(harness.configuration.ExportDirectory, testExportFilePrefixConstant+"*.csv"))
	require.NoError(testInstance, globError)
	require.Len(testInstance, exports, 1)
}

func TestCommandRunFlagsOverrideConfiguration(testInstance *testing.T) {
	testCases := []struct {
		name              string
		arguments         []string
		expectedCollected string
	}{
		{name: "max_items", arguments: []string{"--max-items", "1"}, expectedCollected: "collected 1"},
		{name: "test_item", arguments: []string{"--test-item", testRoadsItemIDConstant}, expectedCollected: "collected 1"},
		{name: "batch_and_workers", arguments: []string{"--batch-size", "1", "--workers", "1"}, expectedCollected: "collected 2"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			harness := newCommandHarness(subTestInstance)
			arguments := append([]string{runSubcommandConstant}, testCase.arguments...)

			require.NoError(subTestInstance, harness.execute(fixedClock{instant: firstRunInstant}, arguments...))
			require.Contains(subTestInstance, harness.output.String(), testCase.expectedCollected)
		})
	}
}

func TestCommandRunRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(configuration *audit.CommandConfiguration)
		arguments     []string
		expectedError string
	}{
		{
			name:          "no_environments",
			mutate:        func(configuration *audit.CommandConfiguration) { configuration.Environments = nil },
			arguments:     []string{runSubcommandConstant},
			expectedError: invalidConfigurationPrefixConstant,
		},
		{
			name: "unknown_time_zone",
			mutate: func(configuration *audit.CommandConfiguration) {
				configuration.TimeZone = "Mars/Olympus_Mons"
			},
			arguments:     []string{runSubcommandConstant},
			expectedError: invalidConfigurationPrefixConstant,
		},
		{
			name:          "sqlite_without_path",
			mutate:        func(configuration *audit.CommandConfiguration) { configuration.AuditTable.Path = "" },
			arguments:     []string{runSubcommandConstant},
			expectedError: "audit_table.path",
		},
		{
			name:          "positional_arguments",
			mutate:        func(*audit.CommandConfiguration) {},
			arguments:     []string{runSubcommandConstant, "extra"},
			expectedError: "does not accept positional arguments",
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			harness := newCommandHarness(subTestInstance)
			testCase.mutate(&harness.configuration)

			executionError := harness.execute(fixedClock{instant: firstRunInstant}, testCase.arguments...)
			require.Error(subTestInstance, executionError)
			require.Contains(subTestInstance, executionError.Error(), testCase.expectedError)
		})
	}
}

func TestCommandConfigPrintsEffectiveConfiguration(testInstance *testing.T) {
	harness := newCommandHarness(testInstance)
	harness.configuration.WorkerCount = 0

	require.NoError(testInstance, harness.execute(fixedClock{instant: firstRunInstant}, configSubcommandConstant))

	printed := audit.CommandConfiguration{}
	require.NoError(testInstance, yaml.Unmarshal([]byte(harness.output.String()), &printed))
	require.Equal(testInstance, 1000, printed.MaxItems)
	require.Equal(testInstance, 1, printed.WorkerCount)
	require.Equal(testInstance, 2000, printed.BatchSize)
	require.Equal(testInstance, testTimeZoneConstant, printed.TimeZone)
	require.Len(testInstance, printed.Environments, 1)
	require.Equal(testInstance, testEnvironmentNameConstant, printed.Environments[0].Name)
	require.Equal(testInstance, "sqlite", printed.AuditTable.Driver)
}
