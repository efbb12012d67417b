package utils

import "context"

type commandContextKey string

const (
	configurationFileContextKeyConstant = commandContextKey("configurationFile")
)

// WithConfigurationFile records the configuration file that produced the command settings.
func WithConfigurationFile(parentContext context.Context, configurationFilePath string) context.Context {
	if parentContext == nil {
		parentContext = context.Background()
	}
	return context.WithValue(parentContext, configurationFileContextKeyConstant, configurationFilePath)
}

// ConfigurationFile returns the configuration file recorded by WithConfigurationFile, or an
// empty string when the settings came from embedded defaults and the environment only.
func ConfigurationFile(executionContext context.Context) string {
	if executionContext == nil {
		return ""
	}
	configurationFilePath, _ := executionContext.Value(configurationFileContextKeyConstant).(string)
	return configurationFilePath
}
