// Package stream publishes room events to a Kafka topic for downstream consumers.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jason-s-yu/forca/internal/config"
	"github.com/jason-s-yu/forca/internal/models"
	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the journal uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaJournal writes each room event as one message keyed by room id, so a room's
// events land on a single partition in order.
type KafkaJournal struct {
	w messageWriter
}

func NewKafkaJournal(cfg config.KafkaConfig) *KafkaJournal {
	return &KafkaJournal{w: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  true,
		BatchSize:              1,
		AllowAutoTopicCreation: true,
	}}
}

// Append implements game.Journal.
func (j *KafkaJournal) Append(ctx context.Context, ev models.RoomEvent) error {
	msg, err := newMessage(ev)
	if err != nil {
		return err
	}
	if err := j.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write for room %s: %w", ev.RoomID, err)
	}
	return nil
}

// Close flushes pending messages.
func (j *KafkaJournal) Close() error {
	return j.w.Close()
}

func newMessage(ev models.RoomEvent) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal room event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.RoomID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(ev.Event)},
			{Key: "seq", Value: []byte(strconv.Itoa(ev.Seq))},
		},
	}, nil
}
