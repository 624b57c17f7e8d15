package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/notevanta/backend/internal/models"
	"github.com/notevanta/backend/internal/utils"
)

type ChatRepository interface {
	Create(ctx context.Context, rec *models.ChatRecord) error
	Get(ctx context.Context, userID, chatID string) (*models.ChatRecord, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error)
	UpdateMessages(ctx context.Context, userID, chatID string, messages []models.Message) error
	SetTitle(ctx context.Context, userID, chatID, title string) error
	Delete(ctx context.Context, userID, chatID string) error
}

type chatRepo struct {
	col *mongo.Collection
}

func NewChatRepo(db *mongo.Database) ChatRepository {
	return &chatRepo{col: db.Collection("chat_history")}
}

func (r *chatRepo) Create(ctx context.Context, rec *models.ChatRecord) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	_, err := r.col.InsertOne(ctx, rec)
	return err
}

func (r *chatRepo) Get(ctx context.Context, userID, chatID string) (*models.ChatRecord, error) {
	var rec models.ChatRecord
	err := r.col.FindOne(ctx, bson.M{"chat_id": chatID, "user_id": userID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	return &rec, err
}

func (r *chatRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.ChatRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	cur, err := r.col.Find(ctx, bson.M{"user_id": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []models.ChatRecord
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatRepo) UpdateMessages(ctx context.Context, userID, chatID string, messages []models.Message) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "user_id": userID},
		bson.M{"$set": bson.M{
			"messages":   messages,
			"updated_at": time.Now().UTC(),
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *chatRepo) SetTitle(ctx context.Context, userID, chatID, title string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"chat_id": chatID, "user_id": userID},
		bson.M{"$set": bson.M{"title": title, "updated_at": time.Now().UTC()}},
	)
	return err
}

func (r *chatRepo) Delete(ctx context.Context, userID, chatID string) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"chat_id": chatID, "user_id": userID})
	return err
}
