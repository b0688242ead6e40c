// Package featureflags provides runtime kill switches for risky
// operational surfaces, with a short in-memory cache over the backing
// store.
package featureflags

import "time"

// Well-known flag keys.
const (
	// FlagDisableExternalShares turns off external share creation.
	FlagDisableExternalShares = "disable_external_shares"

	// FlagRequireMalwareScan blocks sharing files that have not passed
	// a malware scan.
	FlagRequireMalwareScan = "require_malware_scan"

	// FlagDisableAutoClassification stops applying AI PII
	// classification results to files.
	FlagDisableAutoClassification = "disable_auto_classification"
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// BoolValue returns the flag value as a boolean. Returns the default
// value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// DefaultFlags returns the default flag values: everything permissive
// except the malware-scan requirement, which ships on.
func DefaultFlags() map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDisableExternalShares: {
			Key:       FlagDisableExternalShares,
			Value:     false,
			UpdatedAt: now,
		},
		FlagRequireMalwareScan: {
			Key:       FlagRequireMalwareScan,
			Value:     true,
			UpdatedAt: now,
		},
		FlagDisableAutoClassification: {
			Key:       FlagDisableAutoClassification,
			Value:     false,
			UpdatedAt: now,
		},
	}
}
