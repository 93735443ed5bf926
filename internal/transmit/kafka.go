package transmit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"govalert/internal/domain/broadcast"
	"govalert/internal/metrics"
	govalert_errors "govalert/pkg/errors"
)

// Transmitter hands a broadcast event to the downstream alerting transport.
type Transmitter interface {
	Transmit(ctx context.Context, event broadcast.BroadcastEvent) error
}

// envelope is the wire shape published to the broadcasts topic. The consumer
// owns CAP-XML generation; we ship the snapshot fields it needs.
type envelope struct {
	ID                    string                       `json:"id"`
	BroadcastMessageID    string                       `json:"broadcast_message_id"`
	ServiceID             string                       `json:"service_id"`
	MessageType           broadcast.MessageType        `json:"message_type"`
	TransmittedContent    broadcast.TransmittedContent `json:"transmitted_content"`
	TransmittedAreas      broadcast.Areas              `json:"transmitted_areas"`
	TransmittedSender     string                       `json:"transmitted_sender"`
	TransmittedStartsAt   *time.Time                   `json:"transmitted_starts_at"`
	TransmittedFinishesAt *time.Time                   `json:"transmitted_finishes_at"`
	SentAt                time.Time                    `json:"sent_at"`
}

// KafkaTransmitter publishes broadcast events keyed by event id.
type KafkaTransmitter struct {
	writer *kafka.Writer
	topic  string
}

func NewKafkaTransmitter(brokers []string, topic string) *KafkaTransmitter {
	return &KafkaTransmitter{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		topic: topic,
	}
}

func (t *KafkaTransmitter) Transmit(ctx context.Context, event broadcast.BroadcastEvent) error {
	env := envelope{
		ID:                 event.ID.String(),
		BroadcastMessageID: event.BroadcastMessageID.String(),
		ServiceID:          event.ServiceID.String(),
		MessageType:        event.MessageType,
		TransmittedContent: event.TransmittedContent,
		TransmittedAreas:   event.TransmittedAreas,
		TransmittedSender:  event.TransmittedSender,
		SentAt:             event.SentAt.UTC(),
	}
	if event.TransmittedStartsAt.Valid {
		starts := event.TransmittedStartsAt.Time.UTC()
		env.TransmittedStartsAt = &starts
	}
	if event.TransmittedFinishesAt.Valid {
		finishes := event.TransmittedFinishesAt.Time.UTC()
		env.TransmittedFinishesAt = &finishes
	}

	value, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = t.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.ID.String()),
		Value: value,
	})
	if err != nil {
		metrics.KafkaPublishFailureTotal.WithLabelValues(t.topic).Inc()
		return &govalert_errors.ProviderSendError{Provider: "broadcast-transport", Err: err}
	}
	return nil
}

func (t *KafkaTransmitter) Close() error {
	return t.writer.Close()
}
