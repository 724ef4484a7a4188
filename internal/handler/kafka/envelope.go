package kafka

import (
	"encoding/json"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	kafka_infra "github.com/francescomedina/web-app-2-sub000/internal/infrastructure/kafka"
)

// decodeEnvelope extracts the message_id header and unmarshals the event
// envelope. Both failures are data errors: the message can never become
// processable, so callers skip it instead of retrying.
func decodeEnvelope(m kafkago.Message) (string, domain.Envelope, error) {
	messageID := kafka_infra.Header(m, domain.HeaderMessageID)
	if messageID == "" {
		return "", domain.Envelope{}, fmt.Errorf("message on topic %s at offset %d has no %s header",
			m.Topic, m.Offset, domain.HeaderMessageID)
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		return "", domain.Envelope{}, fmt.Errorf("failed to unmarshal event envelope on topic %s: %w", m.Topic, err)
	}
	return messageID, envelope, nil
}
