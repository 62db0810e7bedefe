// Package archive persists members and messages to the archive database.
// The whole feature is optional: a nil *Service is a valid no-op, matching
// deployments that run without an archive database configured.
package archive

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// Member is one archived join event with its inferred inviter, when any.
type Member struct {
	GuildID   string    `bson:"guild_id"`
	UserID    string    `bson:"user_id"`
	Username  string    `bson:"username,omitempty"`
	JoinedAt  time.Time `bson:"joined_at"`
	InviterID string    `bson:"inviter_id,omitempty"`
}

// Message is one archived chat message.
type Message struct {
	GuildID   string    `bson:"guild_id"`
	ChannelID string    `bson:"channel_id"`
	UserID    string    `bson:"user_id"`
	Username  string    `bson:"username,omitempty"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
}

type Service struct {
	members  *mongo.Collection
	messages *mongo.Collection
}

func New(db *mongo.Database) *Service {
	return &Service{
		members:  db.Collection("members"),
		messages: db.Collection("messages"),
	}
}

// SaveMember archives a join event.
func (s *Service) SaveMember(ctx context.Context, member Member) error {
	if s == nil {
		return nil
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	_, err := s.members.InsertOne(ctx, member)
	return err
}

// SaveMessage archives a chat message.
func (s *Service) SaveMessage(ctx context.Context, message Message) error {
	if s == nil {
		return nil
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	_, err := s.messages.InsertOne(ctx, message)
	return err
}
