package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Entities named in change messages.
const (
	EntityCouple   = "couple"
	EntityEvent    = "event"
	EntitySupplier = "supplier"
	EntityQuote    = "quote"
	EntityPayment  = "payment"
	EntityTask     = "task"
	EntityPhoto    = "photo"
)

// Operations named in change messages.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeMessage announces a successful write to a couple's data. It carries
// ids only; consumers reload whatever they need from the database.
type ChangeMessage struct {
	CoupleID  string    `json:"couple_id"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Op        string    `json:"op"`
	Summary   string    `json:"summary"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(coupleID, entity, entityID, op, summary string) ChangeMessage {
	return ChangeMessage{
		CoupleID:  coupleID,
		Entity:    entity,
		EntityID:  entityID,
		Op:        op,
		Summary:   summary,
		Timestamp: time.Now().UTC(),
	}
}

// AffectsBudget reports whether the change can move any budget figure.
func (m ChangeMessage) AffectsBudget() bool {
	switch m.Entity {
	case EntityEvent, EntitySupplier, EntityQuote, EntityPayment, EntityCouple:
		return true
	}
	return false
}

func (m ChangeMessage) Validate() error {
	if m.CoupleID == "" {
		return errors.New("change message without couple_id")
	}
	if m.Entity == "" {
		return errors.New("change message without entity")
	}
	switch m.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return errors.New("change message with unknown op " + m.Op)
	}
	return nil
}

func (m ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message body.
func ChangeMessageFromJSON(data []byte) (ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return msg, err
	}
	return msg, msg.Validate()
}
