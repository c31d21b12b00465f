package domain

import "fmt"

// ConfigurationError reports an invalid or unknown configuration value: an
// unrecognized group key, an unknown data-source selector, a bad bucket
// interval. It is surfaced to the caller and never retried or defaulted.
type ConfigurationError struct {
	Param  string // configuration parameter ("group_by", "data_source", ...)
	Value  string // offending value as provided
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%q: %s", e.Param, e.Value, e.Reason)
}
