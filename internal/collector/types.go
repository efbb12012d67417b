package collector

import (
	"strings"

	"github.com/temirov/layeraudit/internal/gis"
	"github.com/temirov/layeraudit/internal/records"
)

// EnvironmentKind distinguishes the cloud-hosted environment from the self-hosted one.
type EnvironmentKind string

// Supported environment kinds.
const (
	EnvironmentKindOnline     EnvironmentKind = "online"
	EnvironmentKindEnterprise EnvironmentKind = "enterprise"
)

const (
	// DefaultHostedServiceDomain is the host suffix of services hosted by the cloud environment.
	DefaultHostedServiceDomain    = "services.arcgis.com"
	onlineTimeZoneTagConstant     = "AGOL_LOCAL"
	enterpriseTimeZoneTagConstant = "CST"
)

// Environment is one audited server deployment.
type Environment struct {
	Name                string
	Kind                EnvironmentKind
	PortalURL           string
	HostedServiceDomain string
	Portal              gis.Portal
}

// IsOnline reports whether the environment is the cloud-hosted one.
func (environment Environment) IsOnline() bool {
	return EnvironmentKind(strings.ToLower(string(environment.Kind))) == EnvironmentKindOnline
}

// TimeZoneTag labels records with the zone convention of the environment.
func (environment Environment) TimeZoneTag() string {
	if environment.IsOnline() {
		return onlineTimeZoneTagConstant
	}
	return enterpriseTimeZoneTagConstant
}

func (environment Environment) hostedServiceDomain() string {
	domain := strings.ToLower(strings.TrimSpace(environment.HostedServiceDomain))
	if len(domain) == 0 {
		return DefaultHostedServiceDomain
	}
	return domain
}

// Configuration carries the collection tuning values.
type Configuration struct {
	MaxItems    int
	WorkerCount int
	// TestItemID restricts collection to a single item fetched by id.
	TestItemID string
}

// ItemOutcome classifies how an item was handled.
type ItemOutcome string

// Item outcomes.
const (
	ItemOutcomeCollected ItemOutcome = "collected"
	ItemOutcomeSkipped   ItemOutcome = "skipped"
	ItemOutcomeFailed    ItemOutcome = "failed"
)

// ItemResult is the outcome of one item. A failed item may still carry the records
// of layers resolved before the failure.
type ItemResult struct {
	EnvironmentName string
	Item            gis.Item
	Outcome         ItemOutcome
	SkipReason      string
	Records         []records.LayerRecord
	Err             error
}

// EnvironmentResult holds the item results of one environment in listing order.
type EnvironmentResult struct {
	EnvironmentName string
	Items           []ItemResult
	ListingError    error
}

// Result aggregates every environment of a run.
type Result struct {
	Environments []EnvironmentResult
}

// Records concatenates the records of every item in environment and listing order.
func (result Result) Records() []records.LayerRecord {
	collected := make([]records.LayerRecord, 0)
	for _, environmentResult := range result.Environments {
		for _, itemResult := range environmentResult.Items {
			collected = append(collected, itemResult.Records...)
		}
	}
	return collected
}

// CountItems returns how many items ended with outcome.
func (result Result) CountItems(outcome ItemOutcome) int {
	count := 0
	for _, environmentResult := range result.Environments {
		for _, itemResult := range environmentResult.Items {
			if itemResult.Outcome == outcome {
				count++
			}
		}
	}
	return count
}

// ListingFailures returns the environments whose item listing failed.
func (result Result) ListingFailures() []EnvironmentResult {
	failures := make([]EnvironmentResult, 0)
	for _, environmentResult := range result.Environments {
		if environmentResult.ListingError != nil {
			failures = append(failures, environmentResult)
		}
	}
	return failures
}
