package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessagePart is one typed fragment of a chat message. Retrieval only
// consumes parts of type "text"; other kinds pass through untouched.
type MessagePart struct {
	Type string `bson:"type" json:"type"`
	Text string `bson:"text,omitempty" json:"text,omitempty"`
}

// Message is one turn of a conversation.
type Message struct {
	Role  string        `bson:"role" json:"role"` // "user" | "assistant"
	Parts []MessagePart `bson:"parts" json:"parts"`
}

// TextOf returns the first text part, or "" when the message has none.
func (m Message) TextOf() string {
	for _, p := range m.Parts {
		if p.Type == "text" {
			return p.Text
		}
	}
	return ""
}

// ChatRecord is a persisted conversation.
type ChatRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ChatID    string             `bson:"chat_id" json:"chat_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`
	Title     string             `bson:"title" json:"title"`
	Messages  []Message          `bson:"messages" json:"messages"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}
