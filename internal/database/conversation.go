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

// FindConversation looks a conversation up by its platform-native chat id.
// Returns nil without error when nothing matches.
func (m *MongoDB) FindConversation(ctx context.Context, tenant, platform, platformChatID string) (*entity.Conversation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)
	filter := bson.D{
		{"tenant", tenant},
		{"platform", platform},
		{"platform_chat_id", platformChatID},
	}

	var conversation entity.Conversation
	err = collection.FindOne(ctx, filter).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb find conversation: %w", err)
	}

	return &conversation, nil
}

// GetConversation fetches one conversation by its own id.
func (m *MongoDB) GetConversation(ctx context.Context, id primitive.ObjectID) (*entity.Conversation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	var conversation entity.Conversation
	err = collection.FindOne(ctx, bson.D{{"_id", id}}).Decode(&conversation)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("mongodb get conversation: %w", err)
	}

	return &conversation, nil
}

func (m *MongoDB) CreateConversation(ctx context.Context, conversation *entity.Conversation) (*entity.Conversation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	now := time.Now()
	conversation.CreatedAt = now
	conversation.UpdatedAt = now
	if conversation.Status == "" {
		conversation.Status = entity.ConversationActive
	}

	collection := connection.Database(m.database).Collection(conversationsCollection)
	result, err := collection.InsertOne(ctx, conversation)
	if err != nil {
		return nil, fmt.Errorf("mongodb insert conversation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		conversation.ID = oid
	}

	return conversation, nil
}

func (m *MongoDB) UpdateConversation(ctx context.Context, conversation *entity.Conversation) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	conversation.UpdatedAt = time.Now()

	collection := connection.Database(m.database).Collection(conversationsCollection)
	filter := bson.D{{"_id", conversation.ID}}

	result, err := collection.ReplaceOne(ctx, filter, conversation)
	if err != nil {
		return fmt.Errorf("mongodb update conversation: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("conversation not found: %s", conversation.ID.Hex())
	}

	return nil
}

// ListConversations returns a tenant's conversations newest-activity first.
func (m *MongoDB) ListConversations(ctx context.Context, tenant string, limit, offset int) ([]entity.Conversation, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	filter := bson.D{{"tenant", tenant}}
	opts := options.Find().
		SetSort(bson.D{{"last_message.at", -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []entity.Conversation
	if err = cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("mongodb decode conversations: %w", err)
	}

	return conversations, nil
}

// MarkConversationRead zeroes the unread counter and flags customer messages
// as read.
func (m *MongoDB) MarkConversationRead(ctx context.Context, id primitive.ObjectID) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	db := connection.Database(m.database)

	_, err = db.Collection(conversationsCollection).UpdateOne(ctx,
		bson.D{{"_id", id}},
		bson.D{{"$set", bson.D{{"unread", 0}, {"updated_at", time.Now()}}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb mark conversation read: %w", err)
	}

	_, err = db.Collection(messagesCollection).UpdateMany(ctx,
		bson.D{{"conversation_id", id}, {"sender", entity.SenderCustomer}, {"read", false}},
		bson.D{{"$set", bson.D{{"read", true}}}},
	)
	if err != nil {
		return fmt.Errorf("mongodb mark messages read: %w", err)
	}

	return nil
}

// EnsureConversationIndexes creates the uniqueness and list indexes.
func (m *MongoDB) EnsureConversationIndexes(ctx context.Context) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(connection)

	collection := connection.Database(m.database).Collection(conversationsCollection)

	// Synced threads are unique per platform chat; manual threads have no
	// platform chat id, hence the partial filter.
	unique := mongo.IndexModel{
		Keys: bson.D{
			{"tenant", 1},
			{"platform", 1},
			{"platform_chat_id", 1},
		},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{"platform_chat_id", bson.D{{"$gt", ""}}}}),
	}
	listing := mongo.IndexModel{
		Keys: bson.D{
			{"tenant", 1},
			{"last_message.at", -1},
		},
	}

	_, err = collection.Indexes().CreateMany(ctx, []mongo.IndexModel{unique, listing})
	if err != nil {
		return fmt.Errorf("mongodb create conversation indexes: %w", err)
	}

	return nil
}
