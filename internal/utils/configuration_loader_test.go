package utils_test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/utils"
)

const (
	loaderEnvironmentPrefixConstant    = "TESTLAYERAUDIT"
	loaderConfigurationNameConstant    = "config"
	loaderConfigurationTypeConstant    = "yaml"
	loaderConfigurationFileConstant    = "config.yaml"
	loaderApplicationDirectoryConstant = ".layeraudit"
	loaderSubtestNameTemplateConstant  = "%d_%s"
	loaderLogLevelKeyConstant          = "common.log_level"
	loaderMaxItemsKeyConstant          = "audit.max_items"
	loaderRequestTimeoutKeyConstant    = "audit.request_timeout"
	loaderEnvironmentNamesKeyConstant  = "audit.environment_names"
)

const loaderEmbeddedConfigurationConstant = `common:
  log_level: info
audit:
  max_items: 1000
  time_zone: America/Chicago
  request_timeout: 2m
  environment_names: [test]
`

type loaderConfigurationFixture struct {
	Common loaderCommonFixture `mapstructure:"common"`
	Audit  loaderAuditFixture  `mapstructure:"audit"`
}

type loaderCommonFixture struct {
	LogLevel string `mapstructure:"log_level"`
}

type loaderAuditFixture struct {
	MaxItems         int           `mapstructure:"max_items"`
	TimeZone         string        `mapstructure:"time_zone"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	EnvironmentNames []string      `mapstructure:"environment_names"`
}

func loaderEnvironmentVariable(configurationKey string) string {
	return loaderEnvironmentPrefixConstant + "_" + strings.ToUpper(strings.ReplaceAll(configurationKey, ".", "_"))
}

func newTestConfigurationLoader(searchPaths ...string) *utils.ConfigurationLoader {
	configurationLoader := utils.NewConfigurationLoader(loaderConfigurationNameConstant, loaderConfigurationTypeConstant, loaderEnvironmentPrefixConstant, searchPaths)
	configurationLoader.SetEmbeddedConfiguration([]byte(loaderEmbeddedConfigurationConstant), loaderConfigurationTypeConstant)
	return configurationLoader
}

func TestConfigurationLoaderLayersSources(testInstance *testing.T) {
	testCases := []struct {
		name                  string
		defaultValues         map[string]any
		fileContent           string
		environmentValues     map[string]string
		expectedConfiguration loaderConfigurationFixture
	}{
		{
			name: "embedded_only",
			expectedConfiguration: loaderConfigurationFixture{
				Common: loaderCommonFixture{LogLevel: "info"},
				Audit:  loaderAuditFixture{MaxItems: 1000, TimeZone: "America/Chicago", RequestTimeout: 2 * time.Minute, EnvironmentNames: []string{"test"}},
			},
		},
		{
			name:          "embedded_wins_over_defaults",
			defaultValues: map[string]any{loaderLogLevelKeyConstant: "error", "audit.batch_size": 2000},
			expectedConfiguration: loaderConfigurationFixture{
				Common: loaderCommonFixture{LogLevel: "info"},
				Audit:  loaderAuditFixture{MaxItems: 1000, TimeZone: "America/Chicago", RequestTimeout: 2 * time.Minute, EnvironmentNames: []string{"test"}},
			},
		},
		{
			name:        "file_overrides_embedded",
			fileContent: "common:\n  log_level: warn\naudit:\n  max_items: 25\n  request_timeout: 90s\n  environment_names: [test, prod]\n",
			expectedConfiguration: loaderConfigurationFixture{
				Common: loaderCommonFixture{LogLevel: "warn"},
				Audit:  loaderAuditFixture{MaxItems: 25, TimeZone: "America/Chicago", RequestTimeout: 90 * time.Second, EnvironmentNames: []string{"test", "prod"}},
			},
		},
		{
			name:        "environment_overrides_file",
			fileContent: "common:\n  log_level: warn\naudit:\n  max_items: 25\n",
			environmentValues: map[string]string{
				loaderLogLevelKeyConstant:         "debug",
				loaderMaxItemsKeyConstant:         "42",
				loaderRequestTimeoutKeyConstant:   "45s",
				loaderEnvironmentNamesKeyConstant: "test,prod",
			},
			expectedConfiguration: loaderConfigurationFixture{
				Common: loaderCommonFixture{LogLevel: "debug"},
				Audit:  loaderAuditFixture{MaxItems: 42, TimeZone: "America/Chicago", RequestTimeout: 45 * time.Second, EnvironmentNames: []string{"test", "prod"}},
			},
		},
		{
			name: "environment_values_are_trimmed",
			environmentValues: map[string]string{
				loaderLogLevelKeyConstant:         "  error\t",
				loaderRequestTimeoutKeyConstant:   " 3m ",
				loaderEnvironmentNamesKeyConstant: " test , prod ",
				"audit.time_zone":                 " America/Denver ",
			},
			expectedConfiguration: loaderConfigurationFixture{
				Common: loaderCommonFixture{LogLevel: "error"},
				Audit:  loaderAuditFixture{MaxItems: 1000, TimeZone: "America/Denver", RequestTimeout: 3 * time.Minute, EnvironmentNames: []string{"test", "prod"}},
			},
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(loaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			configurationDirectory := subTestInstance.TempDir()
			configurationFilePath := ""
			if len(testCase.fileContent) > 0 {
				configurationFilePath = filepath.Join(configurationDirectory, loaderConfigurationFileConstant)
				require.NoError(subTestInstance, os.WriteFile(configurationFilePath, []byte(testCase.fileContent), 0o600))
			}
			for configurationKey, environmentValue := range testCase.environmentValues {
				subTestInstance.Setenv(loaderEnvironmentVariable(configurationKey), environmentValue)
			}

			loadedConfiguration := loaderConfigurationFixture{}
			metadata, loadError := newTestConfigurationLoader(configurationDirectory).LoadConfiguration(configurationFilePath, testCase.defaultValues, &loadedConfiguration)
			require.NoError(subTestInstance, loadError)
			require.Equal(subTestInstance, testCase.expectedConfiguration, loadedConfiguration)
			require.Equal(subTestInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}

func TestConfigurationLoaderRejectsMalformedDuration(testInstance *testing.T) {
	testInstance.Setenv(loaderEnvironmentVariable(loaderRequestTimeoutKeyConstant), "soon")

	loadedConfiguration := loaderConfigurationFixture{}
	_, loadError := newTestConfigurationLoader(testInstance.TempDir()).LoadConfiguration("", nil, &loadedConfiguration)
	require.Error(testInstance, loadError)
	require.Contains(testInstance, loadError.Error(), "failed to parse configuration")
}

func TestConfigurationLoaderRejectsUnreadableFile(testInstance *testing.T) {
	configurationFilePath := filepath.Join(testInstance.TempDir(), loaderConfigurationFileConstant)
	require.NoError(testInstance, os.WriteFile(configurationFilePath, []byte("audit: [unterminated\n"), 0o600))

	loadedConfiguration := loaderConfigurationFixture{}
	_, loadError := newTestConfigurationLoader().LoadConfiguration(configurationFilePath, nil, &loadedConfiguration)
	require.Error(testInstance, loadError)
	require.Contains(testInstance, loadError.Error(), "failed to read configuration")
}

func TestConfigurationLoaderDiscoversFileOnSearchPath(testInstance *testing.T) {
	testCases := []struct {
		name             string
		useHomeDirectory bool
	}{
		{name: "working_directory"},
		{name: "user_configuration_directory", useHomeDirectory: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(loaderSubtestNameTemplateConstant, testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			workingDirectory := subTestInstance.TempDir()
			homeDirectory := subTestInstance.TempDir()
			subTestInstance.Setenv("HOME", homeDirectory)
			subTestInstance.Setenv("XDG_CONFIG_HOME", filepath.Join(homeDirectory, "config"))

			userConfigurationBase, userConfigurationError := os.UserConfigDir()
			require.NoError(subTestInstance, userConfigurationError)
			userConfigurationDirectory := filepath.Join(userConfigurationBase, loaderApplicationDirectoryConstant)
			require.NoError(subTestInstance, os.MkdirAll(userConfigurationDirectory, 0o755))

			selectedDirectory := workingDirectory
			if testCase.useHomeDirectory {
				selectedDirectory = userConfigurationDirectory
			}
			configurationFilePath := filepath.Join(selectedDirectory, loaderConfigurationFileConstant)
			require.NoError(subTestInstance, os.WriteFile(configurationFilePath, []byte("audit:\n  max_items: 5\n"), 0o600))

			loadedConfiguration := loaderConfigurationFixture{}
			metadata, loadError := newTestConfigurationLoader(workingDirectory, userConfigurationDirectory).LoadConfiguration("", nil, &loadedConfiguration)
			require.NoError(subTestInstance, loadError)
			require.Equal(subTestInstance, 5, loadedConfiguration.Audit.MaxItems)
			require.Equal(subTestInstance, 2*time.Minute, loadedConfiguration.Audit.RequestTimeout)
			require.Equal(subTestInstance, configurationFilePath, metadata.ConfigFileUsed)
		})
	}
}
