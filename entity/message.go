package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SenderCustomer = "customer"
	SenderSeller   = "seller"
)

const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusFailed    = "failed"
)

// Message is one inbound or outbound message. At most one message exists per
// (platform, platform_msg_id); that pair is the dedup key for ingestion.
type Message struct {
	ID             primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConversationID primitive.ObjectID `json:"conversation_id" bson:"conversation_id"`
	Tenant         string             `json:"tenant" bson:"tenant"`
	Platform       string             `json:"platform" bson:"platform"`
	PlatformMsgID  string             `json:"platform_msg_id" bson:"platform_msg_id"` // empty for manual entries
	Sender         string             `json:"sender" bson:"sender"`
	Content        string             `json:"content" bson:"content"`
	Type           string             `json:"type" bson:"type"`
	Status         string             `json:"status" bson:"status"`
	Timestamp      time.Time          `json:"timestamp" bson:"timestamp"`
	Read           bool               `json:"read" bson:"read"`
	Analysis       *AIAnalysis        `json:"analysis,omitempty" bson:"analysis,omitempty"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

// InboundMessage is the raw payload a platform webhook or sync page delivers
// before it is deduplicated and persisted.
type InboundMessage struct {
	PlatformMsgID  string    `json:"platform_msg_id" validate:"required"`
	PlatformChatID string    `json:"platform_chat_id" validate:"required"`
	SenderID       string    `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	SenderAvatar   string    `json:"sender_avatar"`
	Text           string    `json:"text"`
	Type           string    `json:"type"`
	Timestamp      time.Time `json:"timestamp"`
}
