package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Entry is one row of the admin activity trail. It records what an operator
// did, never the content of the report fields they looked at.
type Entry struct {
	Actor     string    `bson:"actor" json:"actor"`
	ActorID   string    `bson:"actor_id" json:"actor_id"`
	Action    string    `bson:"action" json:"action"`
	Target    string    `bson:"target,omitempty" json:"target,omitempty"`
	Detail    string    `bson:"detail,omitempty" json:"detail,omitempty"`
	TraceID   string    `bson:"trace_id,omitempty" json:"trace_id,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Trail writes and reads the activity log collection.
type Trail struct {
	col *mongo.Collection
}

func NewTrail(db *mongo.Database) *Trail {
	return &Trail{col: db.Collection("activity_log")}
}

// Record appends an entry. Audit writes are best-effort for the calling
// flow; the caller decides whether a failure is fatal (it never is today).
func (t *Trail) Record(ctx context.Context, e Entry) error {
	e.CreatedAt = time.Now()
	_, err := t.col.InsertOne(ctx, e)
	return err
}

// ByActor returns the most recent entries for one admin, newest first.
func (t *Trail) ByActor(ctx context.Context, actorID string, limit int64) ([]Entry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := t.col.Find(ctx, bson.M{"actor_id": actorID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
