package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"
)

// KafkaProducer publishes security and attempt events to two Kafka topics.
// It implements both SecuritySink and AttemptSink.
type KafkaProducer struct {
	producer      sarama.SyncProducer
	securityTopic string
	attemptTopic  string
}

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers       []string
	SecurityTopic string
	AttemptTopic  string
}

// NewKafkaProducer creates a new Kafka-backed audit producer
func NewKafkaProducer(config KafkaConfig) (*KafkaProducer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(config.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	log.Printf("✅ Kafka audit producer started (topics: %s, %s)",
		config.SecurityTopic, config.AttemptTopic)

	return &KafkaProducer{
		producer:      producer,
		securityTopic: config.SecurityTopic,
		attemptTopic:  config.AttemptTopic,
	}, nil
}

func (p *KafkaProducer) RecordSecurityEvent(_ context.Context, ev SecurityEvent) error {
	return p.send(p.securityTopic, ev.RecordID, ev)
}

func (p *KafkaProducer) RecordAttempt(_ context.Context, ev AttemptEvent) error {
	return p.send(p.attemptTopic, ev.RunID, ev)
}

func (p *KafkaProducer) send(topic, key string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(b),
	})
	if err != nil {
		return fmt.Errorf("failed to publish audit event: %w", err)
	}
	return nil
}

// Close gracefully shuts down the producer
func (p *KafkaProducer) Close() error {
	log.Println("Closing Kafka audit producer...")
	return p.producer.Close()
}
