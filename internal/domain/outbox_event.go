package domain

import "time"

type OutboxEventStatus string

const (
	OutboxStatusPending OutboxEventStatus = "PENDING"
	OutboxStatusSent    OutboxEventStatus = "SENT"
	OutboxStatusFailed  OutboxEventStatus = "FAILED"
)

// OutboxEvent is an intent-to-publish row, written in the same local
// transaction as the business mutation it reports. Its id doubles as the
// broker message's dedup key (the message_id header).
type OutboxEvent struct {
	ID         string
	Channel    string
	MessageKey string
	Type       EventType
	Payload    []byte
	Headers    map[string]string
	Status     OutboxEventStatus
	CreatedAt  time.Time
	SentAt     *time.Time
}
