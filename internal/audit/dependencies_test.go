package audit_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/layeraudit/internal/audit"
	"github.com/temirov/layeraudit/internal/collector"
)

type stubTokenResolver struct {
	tokens       map[string]string
	declarations []string
}

func (resolver *stubTokenResolver) ResolveDeclaration(_ context.Context, declaration string) (string, error) {
	resolver.declarations = append(resolver.declarations, declaration)
	token, known := resolver.tokens[declaration]
	if !known {
		return "", errors.New("unknown token source")
	}
	return token, nil
}

func TestResolveEnvironmentFactoryBuildsPortals(testInstance *testing.T) {
	tokenResolver := &stubTokenResolver{tokens: map[string]string{"env:AGOL_TOKEN": "token-a", "": ""}}
	factory := audit.ResolveEnvironmentFactory(nil, tokenResolver, nil, nil)

	environments, factoryError := factory(context.Background(), []audit.EnvironmentConfiguration{
		{Name: "AGOL", Kind: "online", PortalURL: "https://example.maps.arcgis.com", HostedServiceDomain: "services.arcgis.com", TokenSource: "env:AGOL_TOKEN"},
		{Name: "Enterprise", Kind: "enterprise", PortalURL: "https://gis.example.org/portal"},
	})
	require.NoError(testInstance, factoryError)
	require.Len(testInstance, environments, 2)
	require.Equal(testInstance, collector.EnvironmentKindOnline, environments[0].Kind)
	require.Equal(testInstance, "services.arcgis.com", environments[0].HostedServiceDomain)
	require.NotNil(testInstance, environments[0].Portal)
	require.Equal(testInstance, collector.EnvironmentKindEnterprise, environments[1].Kind)
	require.Equal(testInstance, []string{"env:AGOL_TOKEN", ""}, tokenResolver.declarations)
}

func TestResolveEnvironmentFactoryReportsTokenFailures(testInstance *testing.T) {
	factory := audit.ResolveEnvironmentFactory(nil, &stubTokenResolver{}, nil, nil)

	_, factoryError := factory(context.Background(), []audit.EnvironmentConfiguration{
		{Name: "AGOL", Kind: "online", PortalURL: "https://example.maps.arcgis.com", TokenSource: "env:MISSING"},
	})
	require.Error(testInstance, factoryError)
	require.Contains(testInstance, factoryError.Error(), "environment AGOL token")
}

func TestResolveAuditTableOpener(testInstance *testing.T) {
	testCases := []struct {
		name          string
		configuration audit.AuditTableConfiguration
		expectError   error
		expectedURL   string
	}{
		{
			name:          "arcgis_table",
			configuration: audit.AuditTableConfiguration{Driver: "arcgis", URL: testAuditTableURLConstant + "/"},
			expectedURL:   testAuditTableURLConstant,
		},
		{
			name:          "arcgis_without_url",
			configuration: audit.AuditTableConfiguration{Driver: "arcgis"},
			expectError:   audit.ErrAuditTableUnavailable,
		},
		{
			name:          "sqlite_in_memory",
			configuration: audit.AuditTableConfiguration{Driver: "sqlite", Path: testInMemoryDatabaseConstant},
			expectedURL:   "sqlite://" + testInMemoryDatabaseConstant,
		},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(commandSubtestTemplateConstant, testCaseIndex, testCase.name), func(subTestInstance *testing.T) {
			opener := audit.ResolveAuditTableOpener(nil, &stubTokenResolver{tokens: map[string]string{"": ""}}, nil, nil)

			table, release, openError := opener(context.Background(), testCase.configuration)
			if testCase.expectError != nil {
				require.ErrorIs(subTestInstance, openError, testCase.expectError)
				return
			}
			require.NoError(subTestInstance, openError)
			require.Equal(subTestInstance, testCase.expectedURL, table.URL())
			require.NoError(subTestInstance, release())
		})
	}
}

func TestResolveAuditTableOpenerCreatesSQLiteDirectories(testInstance *testing.T) {
	databasePath := filepath.Join(testInstance.TempDir(), "nested", "audit.db")
	opener := audit.ResolveAuditTableOpener(nil, nil, nil, nil)

	table, release, openError := opener(context.Background(), audit.AuditTableConfiguration{Driver: "sqlite", Path: databasePath})
	require.NoError(testInstance, openError)
	defer func() { require.NoError(testInstance, release()) }()

	properties, propertiesError := table.Properties(context.Background())
	require.NoError(testInstance, propertiesError)
	require.Equal(testInstance, "Create,Query", properties.Capabilities)
}
