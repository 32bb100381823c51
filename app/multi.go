package app

import (
	"context"

	"github.com/evzone/chargeml/core/alert"
)

// multiPublisher fans one event out to several transports. Every transport
// is attempted; the first error is returned.
type multiPublisher []alert.Publisher

func (m multiPublisher) Publish(ctx context.Context, topic, key string, payload any) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, topic, key, payload); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m multiPublisher) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
