package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"OrderPulse/entity"
)

func (m *MongoDB) CreateMessage(ctx context.Context, message *entity.Message) (*entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	message.CreatedAt = time.Now()
	if message.Timestamp.IsZero() {
		message.Timestamp = message.CreatedAt
	}

	collection := connection.Database(m.database).Collection(messagesCollection)
	result, err := collection.InsertOne(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("mongodb insert message: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		message.ID = oid
	}

	return message, nil
}

// UpdateMessage persists mutable message fields: analysis, delivery status,
// platform id, timestamp, type. Content is immutable once created.
func (m *MongoDB) UpdateMessage(ctx context.Context, message *entity.Message) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)
	update := bson.D{{"$set", bson.D{
		{"status", message.Status},
		{"platform_msg_id", message.PlatformMsgID},
		{"timestamp", message.Timestamp},
		{"type", message.Type},
		{"read", message.Read},
		{"analysis", message.Analysis},
	}}}

	result, err := collection.UpdateOne(ctx, bson.D{{"_id", message.ID}}, update)
	if err != nil {
		return fmt.Errorf("mongodb update message: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("message not found: %s", message.ID.Hex())
	}

	return nil
}

func (m *MongoDB) GetMessage(ctx context.Context, id primitive.ObjectID) (*entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	var message entity.Message
	err = collection.FindOne(ctx, bson.D{{"_id", id}}).Decode(&message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb get message: %w", err)
	}

	return &message, nil
}

// FindMessageByPlatformID returns the message carrying the given
// platform-native id, or nil. This is the dedup lookup.
func (m *MongoDB) FindMessageByPlatformID(ctx context.Context, platform, platformMsgID string) (*entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)
	filter := bson.D{
		{"platform", platform},
		{"platform_msg_id", platformMsgID},
	}

	var message entity.Message
	err = collection.FindOne(ctx, filter).Decode(&message)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb find message by platform id: %w", err)
	}

	return &message, nil
}

// FindRecentMessages returns up to limit messages of a conversation,
// oldest-first, for analysis context.
func (m *MongoDB) FindRecentMessages(ctx context.Context, conversationID primitive.ObjectID, limit int) ([]entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{{"conversation_id", conversationID}}
	opts := options.Find().
		SetSort(bson.D{{"timestamp", -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find recent messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []entity.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode messages: %w", err)
	}

	// reverse to oldest-first
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// FindPendingAnalysis returns messages whose analysis failed and is queued
// for the retry sweep, bounded by the attempt cap.
func (m *MongoDB) FindPendingAnalysis(ctx context.Context, limit, maxAttempts int) ([]entity.Message, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	filter := bson.D{
		{"analysis.pending_analysis", true},
		{"analysis.attempts", bson.D{{"$lt", maxAttempts}}},
	}
	opts := options.Find().
		SetSort(bson.D{{"timestamp", 1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find pending analysis: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []entity.Message
	if err = cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("mongodb decode pending messages: %w", err)
	}

	return messages, nil
}

// EnsureMessageIndexes creates the dedup and context-window indexes.
func (m *MongoDB) EnsureMessageIndexes(ctx context.Context) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(messagesCollection)

	dedup := mongo.IndexModel{
		Keys: bson.D{
			{"platform", 1},
			{"platform_msg_id", 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{"platform_msg_id", bson.D{{"$gt", ""}}}}),
	}
	window := mongo.IndexModel{
		Keys: bson.D{
			{"conversation_id", 1},
			{"timestamp", -1},
		},
	}

	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{dedup, window})
	if err != nil {
		return fmt.Errorf("mongodb create message indexes: %w", err)
	}

	return nil
}
