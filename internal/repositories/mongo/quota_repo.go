package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/notevanta/backend/internal/models"
)

// QuotaRepository is the per-user-per-day message counter. The
// increment must be a single transactional update: two concurrent
// calls observing count=limit-1 must never both pass the gate.
type QuotaRepository interface {
	// CheckAndIncrement atomically increments today's counter when it
	// is below limit. It reports the resulting record and whether the
	// caller is allowed to proceed. Exhausted counters are not mutated.
	CheckAndIncrement(ctx context.Context, userID string, limit int) (*models.QuotaRecord, bool, error)

	// Peek reads today's counter without mutating anything.
	Peek(ctx context.Context, userID string) (*models.QuotaRecord, error)
}

type quotaRepo struct {
	col *mongo.Collection
}

func NewQuotaRepo(db *mongo.Database) QuotaRepository {
	return &quotaRepo{col: db.Collection("message_usage")}
}

// quotaKey matches the persisted layout: "{userId}_{YYYY-MM-DD}".
// Keying on the calendar date gives the implicit daily reset.
func quotaKey(userID string, now time.Time) (id, date string) {
	date = now.UTC().Format("2006-01-02")
	return userID + "_" + date, date
}

func (r *quotaRepo) CheckAndIncrement(ctx context.Context, userID string, limit int) (*models.QuotaRecord, bool, error) {
	id, date := quotaKey(userID, time.Now())

	// Single find-and-modify: the filter only matches while the
	// counter is below the limit, and the upsert covers the first
	// message of the day. An exhausted counter fails the filter and
	// surfaces as a duplicate-key error on the upsert attempt.
	filter := bson.M{"_id": id, "count": bson.M{"$lt": limit}}
	update := bson.M{
		"$inc":         bson.M{"count": 1},
		"$setOnInsert": bson.M{"user_id": userID, "date": date},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var rec models.QuotaRecord
	err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&rec)
	if err == nil {
		return &rec, true, nil
	}

	if mongo.IsDuplicateKeyError(err) {
		// Counter exists and is at the limit; read it without mutating.
		cur, perr := r.Peek(ctx, userID)
		if perr != nil {
			return nil, false, perr
		}
		return cur, false, nil
	}
	return nil, false, err
}

func (r *quotaRepo) Peek(ctx context.Context, userID string) (*models.QuotaRecord, error) {
	id, date := quotaKey(userID, time.Now())

	var rec models.QuotaRecord
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return &models.QuotaRecord{ID: id, UserID: userID, Date: date, Count: 0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
