package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PlatformWhatsApp  = "whatsapp"
	PlatformInstagram = "instagram"
)

const (
	ConversationActive   = "active"
	ConversationArchived = "archived"
	ConversationBlocked  = "blocked"
)

const (
	EntrySynced = "synced"
	EntryManual = "manual"
)

// Conversation is one seller-customer thread on one platform.
// For a given (tenant, platform, platform_chat_id) the conversation is unique.
type Conversation struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Tenant            string             `json:"tenant" bson:"tenant"`
	Platform          string             `json:"platform" bson:"platform"`
	PlatformChatID    string             `json:"platform_chat_id" bson:"platform_chat_id"` // empty for manual threads
	ParticipantID     string             `json:"participant_id" bson:"participant_id"`
	ParticipantName   string             `json:"participant_name" bson:"participant_name"`
	ParticipantAvatar string             `json:"participant_avatar" bson:"participant_avatar"`
	LastMessage       LastMessage        `json:"last_message" bson:"last_message"`
	Unread            int                `json:"unread" bson:"unread"`
	OrderDetected     bool               `json:"order_detected" bson:"order_detected"`
	Status            string             `json:"status" bson:"status"`
	EntryMode         string             `json:"entry_mode" bson:"entry_mode"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}

// LastMessage is the summary shown in the inbox list.
type LastMessage struct {
	Excerpt string    `json:"excerpt" bson:"excerpt"`
	Sender  string    `json:"sender" bson:"sender"`
	At      time.Time `json:"at" bson:"at"`
}
