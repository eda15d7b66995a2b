package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"finledger/internal/core"
)

// EventType discriminates the messages sharing the ledger event queue.
type EventType string

const (
	OperationCreated EventType = "operation.created"
	OperationUpdated EventType = "operation.updated"
	OperationDeleted EventType = "operation.deleted"
	CardsChanged     EventType = "cards.changed"
)

// envelope wraps every published message with its type so a single queue
// can carry both operation and card events.
type envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OperationEvent mirrors an operation mutation. It carries the fields the
// report worker needs; the full record stays in the server process.
type OperationEvent struct {
	Type         EventType          `json:"-"`
	OperationID  string             `json:"operation_id"`
	Kind         core.OperationKind `json:"kind"`
	Name         string             `json:"name"`
	AmountCents  int64              `json:"amount_cents"`
	Date         string             `json:"date"`
	CategoryName string             `json:"category_name"`
	CreditCardID string             `json:"credit_card_id,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// NewOperationEvent builds an event from an operation mutation.
func NewOperationEvent(typ EventType, op core.Operation) OperationEvent {
	return OperationEvent{
		Type:         typ,
		OperationID:  op.ID,
		Kind:         op.Kind,
		Name:         op.Name,
		AmountCents:  op.Amount.Cents,
		Date:         op.Date.String(),
		CategoryName: op.Category.Name,
		CreditCardID: op.CreditCardID,
		Timestamp:    time.Now().UTC(),
	}
}

// CardState is the wire form of one card in a CardsChangedEvent.
type CardState struct {
	ID             string `json:"id"`
	Number         string `json:"number"`
	OwnerName      string `json:"owner_name"`
	LimitCents     int64  `json:"limit_cents"`
	BalanceCents   int64  `json:"balance_cents"`
	AvailableCents int64  `json:"available_cents"`
}

// CardsChangedEvent carries the full card set after a ledger mutation.
type CardsChangedEvent struct {
	Cards     []CardState `json:"cards"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewCardsChangedEvent builds an event from a card-set snapshot.
func NewCardsChangedEvent(snapshot []core.CreditCard) CardsChangedEvent {
	states := make([]CardState, len(snapshot))
	for i, c := range snapshot {
		states[i] = CardState{
			ID:             c.ID,
			Number:         c.Number,
			OwnerName:      c.OwnerName,
			LimitCents:     c.CreditLimit.Cents,
			BalanceCents:   c.CurrentBalance.Cents,
			AvailableCents: c.AvailableCredit().Cents,
		}
	}
	return CardsChangedEvent{Cards: states, Timestamp: time.Now().UTC()}
}

func encodeEnvelope(typ EventType, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(envelope{Type: typ, Payload: body})
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return env, nil
}
