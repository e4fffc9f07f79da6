package mongodb

import (
	"contribution-ledger/internal/events"
	"strconv"
)

type storedEvent struct {
	ID         string            `bson:"_id" json:"id"`
	Type       string            `bson:"type" json:"type"`
	TxRef      string            `bson:"txRef" json:"txRef"`
	Sequence   uint64            `bson:"sequence" json:"sequence"`
	Index      int               `bson:"index" json:"index"`
	Timestamp  int64             `bson:"timestamp" json:"timestamp"`
	Attributes map[string]string `bson:"attributes" json:"attributes"`
}

func eventID(e events.Event) string {
	return e.TxRef + "/" + strconv.Itoa(e.Index)
}

func toStored(e events.Event) storedEvent {
	return storedEvent{
		ID:         eventID(e),
		Type:       e.Type,
		TxRef:      e.TxRef,
		Sequence:   e.Sequence,
		Index:      e.Index,
		Timestamp:  e.Timestamp,
		Attributes: e.Attributes,
	}
}

func (s storedEvent) event() events.Event {
	return events.Event{
		Type:       s.Type,
		TxRef:      s.TxRef,
		Sequence:   s.Sequence,
		Index:      s.Index,
		Timestamp:  s.Timestamp,
		Attributes: s.Attributes,
	}
}
