package metrics

import "github.com/evzone/chargeml/core/factory"

// Config lists the metrics sinks to instantiate.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}
