package kafka

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"
)

// Config holds Kafka producer configuration.
type Config struct {
	Brokers       []string
	ClientID      string
	Username      string
	Password      string
	SSL           bool
	SASLMechanism string
}

// Producer wraps a Kafka producer used for fire-and-forget event publishing.
type Producer struct {
	producer *kafka.Producer
	log      *logrus.Logger
}

// NewProducer creates a new Kafka producer.
func NewProducer(cfg Config, log *logrus.Logger) (*Producer, error) {
	configMap := &kafka.ConfigMap{
		"bootstrap.servers": strings.Join(cfg.Brokers, ","),
		"client.id":         cfg.ClientID,
		"acks":              "all",
	}

	if cfg.Username != "" && cfg.Password != "" {
		configMap.SetKey("sasl.mechanism", strings.ToUpper(cfg.SASLMechanism))
		configMap.SetKey("sasl.username", cfg.Username)
		configMap.SetKey("sasl.password", cfg.Password)
		if cfg.SSL {
			configMap.SetKey("security.protocol", "SASL_SSL")
		} else {
			configMap.SetKey("security.protocol", "SASL_PLAINTEXT")
		}
	}

	producer, err := kafka.NewProducer(configMap)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	go func() {
		for e := range producer.Events() {
			if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
				log.WithError(m.TopicPartition.Error).Warn("kafka delivery failed")
			}
		}
	}()

	return &Producer{producer: producer, log: log}, nil
}

// Produce sends a message to a Kafka topic (async).
func (p *Producer) Produce(topic string, key, value []byte) error {
	return p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   key,
		Value: value,
	}, nil)
}

// PublishJSON marshals data to JSON and publishes it.
func (p *Producer) PublishJSON(topic string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return p.Produce(topic, nil, jsonData)
}

// Close flushes outstanding messages and closes the producer.
func (p *Producer) Close() {
	if p.producer != nil {
		p.producer.Flush(5000)
		p.producer.Close()
	}
}
