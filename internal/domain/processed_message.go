package domain

import (
	"errors"
	"time"
)

var ErrMessageAlreadyProcessed = errors.New("message already processed")

// ProcessedMessage is the consumer-side dedup record, keyed by the message_id
// header rather than topic/partition/offset because the relay may re-mint
// offsets when it redelivers.
type ProcessedMessage struct {
	MessageID     string
	ConsumerGroup string
	Topic         string
	ReceivedAt    time.Time
}
