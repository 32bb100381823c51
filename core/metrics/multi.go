package metrics

// MultiSink fans events out to several sinks, returning the first error
// encountered. Optional recorder interfaces are forwarded only to the
// sinks that implement them.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink over the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordPrediction forwards prediction events to all sinks.
func (m *MultiSink) RecordPrediction(ev PredictionEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordPrediction(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordCache forwards cache outcomes.
func (m *MultiSink) RecordCache(ev CacheEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(CacheRecorder); ok {
			if err := rec.RecordCache(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordModelLifecycle forwards registry lifecycle events.
func (m *MultiSink) RecordModelLifecycle(ev ModelLifecycleEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ModelRecorder); ok {
			if err := rec.RecordModelLifecycle(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordAlert forwards alert delivery events.
func (m *MultiSink) RecordAlert(ev AlertEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(AlertRecorder); ok {
			if err := rec.RecordAlert(ev); err != nil {
				return err
			}
		}
	}
	return nil
}
