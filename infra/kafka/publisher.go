// Package kafka provides the Kafka transport: the alert publisher the
// orchestrator writes to and the telemetry consumer that feeds it.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/evzone/chargeml/core/logger"
)

// Config holds the broker settings shared by publisher and consumer.
type Config struct {
	Enabled bool     `json:"enabled"`
	Brokers []string `json:"brokers"`
	// GroupID names the telemetry consumer group.
	GroupID string `json:"group_id"`
	// WriteTimeout bounds a single publish, in seconds.
	WriteTimeout int `json:"write_timeout"`
}

// SetDefaults fills broker settings for a local single-node setup.
func (c *Config) SetDefaults() {
	if len(c.Brokers) == 0 {
		c.Brokers = []string{"localhost:9092"}
	}
	if c.GroupID == "" {
		c.GroupID = "chargeml"
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10
	}
}

// Publisher writes JSON events to Kafka topics. Writers are created per
// topic on first use and reused afterwards.
type Publisher struct {
	cfg Config
	log logger.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewPublisher creates the publisher. Connections are lazy.
func NewPublisher(cfg Config, log logger.Logger) *Publisher {
	cfg.SetDefaults()
	return &Publisher{cfg: cfg, log: log, writers: make(map[string]*kafka.Writer)}
}

// Publish marshals the payload and writes it to the topic, keyed so that
// events of one charger stay ordered within a partition.
func (p *Publisher) Publish(ctx context.Context, topic, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("kafka encode for %s: %w", topic, err)
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.cfg.WriteTimeout)*time.Second)
	defer cancel()
	msg := kafka.Message{Value: raw}
	if key != "" {
		msg.Key = []byte(key)
	}
	if err := p.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka publish to %s: %w", topic, err)
	}
	p.log.Debugf("published event to %s", topic)
	return nil
}

// Close shuts down every per-topic writer, returning the first error.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var first error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil && first == nil {
			first = fmt.Errorf("kafka close %s: %w", topic, err)
		}
	}
	p.writers = make(map[string]*kafka.Writer)
	return first
}

func (p *Publisher) writer(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(p.cfg.Brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireOne,
		Balancer:     &kafka.Hash{},
		Async:        false,
	}
	p.writers[topic] = w
	return w
}
