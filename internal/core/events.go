package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a change published after a successful commit.
type EventType string

const (
	EventTransactionCreated EventType = "transaction.created"
	EventTransactionDeleted EventType = "transaction.deleted"
	EventTransferCreated    EventType = "transfer.created"
	EventBudgetUpserted     EventType = "budget.upserted"
	EventBudgetDeleted      EventType = "budget.deleted"
)

// Event tells downstream consumers which month's figures changed.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Month      string    `json:"month"`
	EntityID   string    `json:"entity_id"`
}

// NewEvent stamps a new event with a fresh id and the current time.
func NewEvent(t EventType, month, entityID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       t,
		OccurredAt: time.Now().UTC(),
		Month:      month,
		EntityID:   entityID,
	}
}
