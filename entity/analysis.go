package entity

import "time"

const (
	IntentInquiry      = "inquiry"
	IntentPurchase     = "purchase"
	IntentComplaint    = "complaint"
	IntentSupport      = "support"
	IntentNegotiation  = "negotiation"
	IntentCancellation = "cancellation"
	IntentFollowUp     = "follow-up"
)

const (
	SourceProvider = "openai"
	SourcePattern  = "pattern"
)

// Fallback reason codes recorded when the provider path was not used.
const (
	FallbackNone              = ""
	FallbackUnavailable       = "provider_unavailable"
	FallbackRateLimited       = "rate_limited"
	FallbackCircuitOpen       = "circuit_open"
	FallbackTimeout           = "provider_timeout"
	FallbackProcessingTimeout = "processing_timeout"
	FallbackQuota             = "quota_exceeded"
	FallbackBadResponse       = "malformed_response"
	FallbackNoCredentials     = "no_credentials"
)

// AIAnalysis is the classification attached to a message. Set once under
// normal flow; overwritten when a pending retry later succeeds.
type AIAnalysis struct {
	OrderDetected    bool             `json:"order_detected" bson:"order_detected"`
	Confidence       float64          `json:"confidence" bson:"confidence"`
	Intent           string           `json:"intent" bson:"intent"`
	Order            *ExtractedOrder  `json:"order,omitempty" bson:"order,omitempty"`
	SuggestedReplies []SuggestedReply `json:"suggested_replies,omitempty" bson:"suggested_replies,omitempty"`
	Source           string           `json:"source" bson:"source"`
	FallbackReason   string           `json:"fallback_reason,omitempty" bson:"fallback_reason,omitempty"`
	PendingAnalysis  bool             `json:"pending_analysis" bson:"pending_analysis"`
	Attempts         int              `json:"attempts" bson:"attempts"`
	AnalyzedAt       time.Time        `json:"analyzed_at" bson:"analyzed_at"`
}

// ExtractedOrder holds the order fields pulled out of a customer message.
// All fields are optional.
type ExtractedOrder struct {
	Product         string  `json:"product,omitempty" bson:"product,omitempty"`
	Quantity        int     `json:"quantity,omitempty" bson:"quantity,omitempty"`
	Price           float64 `json:"price,omitempty" bson:"price,omitempty"`
	DeliveryAddress string  `json:"delivery_address,omitempty" bson:"delivery_address,omitempty"`
	Contact         string  `json:"contact,omitempty" bson:"contact,omitempty"`
	Notes           string  `json:"notes,omitempty" bson:"notes,omitempty"`
}

// SuggestedReply is one reply the seller can send with a single tap.
type SuggestedReply struct {
	Text       string  `json:"text" bson:"text"`
	Type       string  `json:"type" bson:"type"`
	Tone       string  `json:"tone" bson:"tone"`
	Language   string  `json:"language" bson:"language"`
	Confidence float64 `json:"confidence" bson:"confidence"`
}
