package metrics

import "github.com/evzone/chargeml/core/factory"

var sinkRegistry = factory.NewRegistry[Sink]()

// RegisterSink adds a sink builder identified by type name. Infra
// implementations call this from init.
func RegisterSink(name string, b factory.Builder[Sink]) error {
	return sinkRegistry.Register(name, b)
}

// NewSink creates a Sink from configuration. No configured sinks means
// NopSink; several mean a fan-out over all of them.
func NewSink(cfgs []factory.ModuleConfig) (Sink, error) {
	if len(cfgs) == 0 {
		return NopSink{}, nil
	}
	if len(cfgs) == 1 {
		return sinkRegistry.Create(cfgs[0])
	}
	sinks := make([]Sink, len(cfgs))
	for i, c := range cfgs {
		s, err := sinkRegistry.Create(c)
		if err != nil {
			return nil, err
		}
		sinks[i] = s
	}
	return NewMultiSink(sinks...), nil
}
