package audit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/temirov/layeraudit/internal/arcgis"
	"github.com/temirov/layeraudit/internal/auditstore/sqlite"
	"github.com/temirov/layeraudit/internal/collector"
	"github.com/temirov/layeraudit/internal/credentials"
	"github.com/temirov/layeraudit/internal/gis"
	pathutils "github.com/temirov/layeraudit/internal/utils/path"
)

const (
	environmentTokenErrorTemplateConstant  = "environment %s token: %w"
	environmentPortalErrorTemplateConstant = "environment %s portal: %w"
	auditTableTokenErrorTemplateConstant   = "audit table token: %w"
	auditTableOpenErrorTemplateConstant    = "%w: %w"
	environmentLogFieldConstant            = "environment"
)

// TokenResolver resolves token source declarations such as "env:NAME" or "file:/path".
type TokenResolver interface {
	ResolveDeclaration(resolutionContext context.Context, declaration string) (string, error)
}

// EnvironmentFactory builds collector environments from configuration.
type EnvironmentFactory func(executionContext context.Context, configurations []EnvironmentConfiguration) ([]collector.Environment, error)

// AuditTableOpener opens the destination audit table; the returned function releases it.
type AuditTableOpener func(executionContext context.Context, configuration AuditTableConfiguration) (gis.AuditTable, func() error, error)

// ResolveEnvironmentFactory returns factory or an ArcGIS REST backed default.
func ResolveEnvironmentFactory(factory EnvironmentFactory, tokenResolver TokenResolver, httpClient arcgis.HTTPClient, logger *zap.Logger) EnvironmentFactory {
	if factory != nil {
		return factory
	}
	resolvedTokenResolver := resolveTokenResolver(tokenResolver)
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(executionContext context.Context, configurations []EnvironmentConfiguration) ([]collector.Environment, error) {
		environments := make([]collector.Environment, 0, len(configurations))
		for _, configuration := range configurations {
			token, tokenError := resolvedTokenResolver.ResolveDeclaration(executionContext, configuration.TokenSource)
			if tokenError != nil {
				return nil, fmt.Errorf(environmentTokenErrorTemplateConstant, configuration.Name, tokenError)
			}
			client := arcgis.NewClient(arcgis.ClientConfiguration{
				Token:      token,
				HTTPClient: httpClient,
				Logger:     logger.With(zap.String(environmentLogFieldConstant, configuration.Name)),
			})
			portal, portalError := arcgis.NewPortal(client, configuration.PortalURL)
			if portalError != nil {
				return nil, fmt.Errorf(environmentPortalErrorTemplateConstant, configuration.Name, portalError)
			}
			environments = append(environments, collector.Environment{
				Name:                configuration.Name,
				Kind:                collector.EnvironmentKind(configuration.Kind),
				PortalURL:           configuration.PortalURL,
				HostedServiceDomain: configuration.HostedServiceDomain,
				Portal:              portal,
			})
		}
		return environments, nil
	}
}

// ResolveAuditTableOpener returns opener or a default choosing between the hosted table
// and the local SQLite store by driver.
func ResolveAuditTableOpener(opener AuditTableOpener, tokenResolver TokenResolver, httpClient arcgis.HTTPClient, logger *zap.Logger) AuditTableOpener {
	if opener != nil {
		return opener
	}
	resolvedTokenResolver := resolveTokenResolver(tokenResolver)
	homeExpander := pathutils.NewHomeExpander()
	return func(executionContext context.Context, configuration AuditTableConfiguration) (gis.AuditTable, func() error, error) {
		if configuration.Driver == auditTableDriverSQLiteConstant {
			store, storeError := sqlite.NewStore(executionContext, sqlite.Configuration{Path: homeExpander.Expand(configuration.Path)})
			if storeError != nil {
				return nil, nil, fmt.Errorf(auditTableOpenErrorTemplateConstant, ErrAuditTableUnavailable, storeError)
			}
			return store, store.Close, nil
		}

		token, tokenError := resolvedTokenResolver.ResolveDeclaration(executionContext, configuration.TokenSource)
		if tokenError != nil {
			return nil, nil, fmt.Errorf(auditTableTokenErrorTemplateConstant, tokenError)
		}
		client := arcgis.NewClient(arcgis.ClientConfiguration{Token: token, HTTPClient: httpClient, Logger: logger})
		table, tableError := arcgis.NewFeatureTable(client, configuration.URL)
		if tableError != nil {
			return nil, nil, fmt.Errorf(auditTableOpenErrorTemplateConstant, ErrAuditTableUnavailable, tableError)
		}
		return table, func() error { return nil }, nil
	}
}

func resolveTokenResolver(tokenResolver TokenResolver) TokenResolver {
	if tokenResolver != nil {
		return tokenResolver
	}
	return credentials.NewResolver(nil, nil)
}
