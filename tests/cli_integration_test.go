package tests

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const (
	integrationDebugMessageConstant         = "configuration initialized"
	integrationLogLevelEnvKeyConstant       = "LAYERAUDIT_COMMON_LOG_LEVEL"
	integrationConfigFileNameConstant       = "config.yaml"
	integrationLogLevelTemplateConstant     = "common:\n  log_level: %s\n"
	integrationCommandTimeout               = 2 * time.Minute
	integrationConfigFlagTemplateConstant   = "--config=%s"
	integrationSubtestNameTemplateConstant  = "%d_%s"
	integrationHelpUsagePrefixConstant      = "Usage:"
	integrationHelpDescriptionConstant      = "layeraudit snapshots per-layer metadata"
	integrationInvalidConfigurationConstant = "invalid audit configuration"
)

const integrationAuditConfigurationConstant = `audit:
  max_items: 5
  environments:
    - name: Enterprise
      kind: enterprise
      portal_url: https://gis.example.org/portal
  audit_table:
    driver: sqlite
    path: %s
`

func TestCLIIntegrationLogLevels(testInstance *testing.T) {
	testCases := []struct {
		name                 string
		configurationLevel   string
		environmentLevel     string
		expectedDebugVisible bool
	}{
		{name: "default_info"},
		{name: "config_debug", configurationLevel: "debug", expectedDebugVisible: true},
		{name: "environment_debug", environmentLevel: "debug", expectedDebugVisible: true},
		{name: "environment_error_over_config", configurationLevel: "debug", environmentLevel: "error"},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(integrationSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			arguments := []string{}
			environment := []string{}

			if len(testCase.configurationLevel) > 0 {
				configurationPath := writeIntegrationFile(subTestInstance, subTestInstance.TempDir(), integrationConfigFileNameConstant, fmt.Sprintf(integrationLogLevelTemplateConstant, testCase.configurationLevel))
				arguments = append(arguments, fmt.Sprintf(integrationConfigFlagTemplateConstant, configurationPath))
			}
			if len(testCase.environmentLevel) > 0 {
				environment = append(environment, integrationLogLevelEnvKeyConstant+"="+testCase.environmentLevel)
			}
			arguments = append(arguments, "audit", "config")

			result := runIntegrationCommand(subTestInstance, integrationCommandTimeout, environment, arguments...)
			require.NoError(subTestInstance, result.err, result.output)

			if testCase.expectedDebugVisible {
				require.Contains(subTestInstance, result.output, integrationDebugMessageConstant)
			} else {
				require.NotContains(subTestInstance, result.output, integrationDebugMessageConstant)
			}
		})
	}
}

func TestCLIIntegrationDisplaysHelpWhenNoArgumentsProvided(testInstance *testing.T) {
	result := runIntegrationCommand(testInstance, integrationCommandTimeout, nil)
	require.NoError(testInstance, result.err, result.output)
	require.Contains(testInstance, result.output, integrationHelpUsagePrefixConstant)
	require.Contains(testInstance, result.output, integrationHelpDescriptionConstant)
}

func TestCLIIntegrationAuditConfigReflectsFileAndFlags(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	databasePath := filepath.Join(workingDirectory, "audit.db")
	configurationPath := writeIntegrationFile(testInstance, workingDirectory, integrationConfigFileNameConstant, fmt.Sprintf(integrationAuditConfigurationConstant, databasePath))

	result := runIntegrationCommand(testInstance, integrationCommandTimeout, nil, fmt.Sprintf(integrationConfigFlagTemplateConstant, configurationPath), "audit", "config")
	require.NoError(testInstance, result.err, result.output)
	require.Contains(testInstance, result.output, "max_items: 5")
	require.Contains(testInstance, result.output, "driver: sqlite")
	require.Contains(testInstance, result.output, "portal_url: https://gis.example.org/portal")
}

func TestCLIIntegrationAuditRunRejectsMissingEnvironments(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	configurationPath := writeIntegrationFile(testInstance, workingDirectory, integrationConfigFileNameConstant, "audit:\n  environments: []\n")

	result := runIntegrationCommand(testInstance, integrationCommandTimeout, nil, fmt.Sprintf(integrationConfigFlagTemplateConstant, configurationPath), "audit", "run", "--first-run", "no", "--max-items", "1")
	require.Error(testInstance, result.err)
	require.Contains(testInstance, result.output, integrationInvalidConfigurationConstant)
}
