package mongodb

import (
	"context"
	"contribution-ledger/internal/events"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	eventsCollection = "events"

	defaultEventsLimit = 100
)

func (b Repository) collection() *mongo.Collection {
	return b.client.Database(b.database).Collection(eventsCollection)
}

// InsertEvent archives a committed event. Archiving the same event twice is a no-op.
func (b Repository) InsertEvent(ctx context.Context, event events.Event) error {
	stored := toStored(event)

	opts := options.Replace().SetUpsert(true)
	_, err := b.collection().ReplaceOne(ctx, bson.M{"_id": stored.ID}, stored, opts)
	if err != nil {
		return errors.New("failed to archive the event: " + err.Error())
	}
	return nil
}

// Events returns the newest archived events, optionally of one type only.
// They are ordered by commit: journal sequence, then position within the call.
func (b Repository) Events(ctx context.Context, eventType string, limit int64) ([]events.Event, error) {
	filter := bson.M{}
	if eventType != "" && eventType != events.TypeAll {
		filter["type"] = eventType
	}
	if limit <= 0 {
		limit = defaultEventsLimit
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "sequence", Value: -1}, {Key: "index", Value: 1}}).
		SetLimit(limit)
	cursor, err := b.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.New("failed to find the events: " + err.Error())
	}

	var stored []storedEvent
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, errors.New("failed to decode the events: " + err.Error())
	}

	out := make([]events.Event, 0, len(stored))
	for _, s := range stored {
		out = append(out, s.event())
	}
	return out, nil
}

// Handler archives every event it receives within timeout.
func (b Repository) Handler(timeout time.Duration) events.Handler {
	return func(event events.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := b.InsertEvent(ctx, event); err != nil {
			b.logger.Debug("failed to archive the event", zap.String("type", event.Type), zap.String("txRef", event.TxRef))
			return err
		}
		return nil
	}
}
