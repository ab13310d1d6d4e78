package entity

// Event names published to the real-time bus.
const (
	EventNewMessage          = "new_message"
	EventOrderDetected       = "order_detected"
	EventConversationUpdated = "conversation_updated"
)

// NewMessageEvent is pushed for every persisted inbound message.
type NewMessageEvent struct {
	Tenant         string  `json:"tenant"`
	ConversationID string  `json:"conversation_id"`
	Message        Message `json:"message"`
}

// OrderDetectedEvent is pushed when analysis flags purchase intent above the
// confidence threshold.
type OrderDetectedEvent struct {
	Tenant           string           `json:"tenant"`
	ConversationID   string           `json:"conversation_id"`
	MessageID        string           `json:"message_id"`
	Confidence       float64          `json:"confidence"`
	Order            *ExtractedOrder  `json:"order,omitempty"`
	SuggestedReplies []SuggestedReply `json:"suggested_replies,omitempty"`
}

// ConversationUpdatedEvent is pushed once per touched conversation after a
// batch, reflecting the final unread count and last-message summary.
type ConversationUpdatedEvent struct {
	Tenant       string       `json:"tenant"`
	Conversation Conversation `json:"conversation"`
}
