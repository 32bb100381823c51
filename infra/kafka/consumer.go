package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/evzone/chargeml/core/alert"
	"github.com/evzone/chargeml/core/logger"
	"github.com/evzone/chargeml/core/model"
)

// SnapshotHandler receives each decoded charger snapshot. The tenant comes
// from the message headers when the fleet operator sets one.
type SnapshotHandler func(ctx context.Context, snap model.ChargerSnapshot, tenantID string)

// TelemetryConsumer reads charger snapshots from the telemetry topic and
// hands them to the orchestrator. Malformed messages are logged and
// skipped; consumption continues.
type TelemetryConsumer struct {
	reader  *kafka.Reader
	handler SnapshotHandler
	log     logger.Logger
}

// NewTelemetryConsumer creates a group consumer on the telemetry topic.
func NewTelemetryConsumer(cfg Config, handler SnapshotHandler, log logger.Logger) *TelemetryConsumer {
	cfg.SetDefaults()
	return &TelemetryConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			GroupID:  cfg.GroupID,
			Topic:    alert.TopicTelemetry,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  500 * time.Millisecond,
		}),
		handler: handler,
		log:     log,
	}
}

// Run consumes until the context is canceled.
func (c *TelemetryConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var snap model.ChargerSnapshot
		if err := json.Unmarshal(msg.Value, &snap); err != nil {
			c.log.Warnf("telemetry decode at offset %d: %v", msg.Offset, err)
			continue
		}
		if err := snap.Validate(); err != nil {
			c.log.Warnf("telemetry snapshot rejected: %v", err)
			continue
		}
		c.handler(ctx, snap, tenantFrom(msg.Headers))
	}
}

// Close shuts down the group reader.
func (c *TelemetryConsumer) Close() error {
	return c.reader.Close()
}

func tenantFrom(headers []kafka.Header) string {
	for _, h := range headers {
		if h.Key == "tenant_id" {
			return string(h.Value)
		}
	}
	return ""
}
