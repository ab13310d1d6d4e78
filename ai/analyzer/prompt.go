package analyzer

import (
	"encoding/json"
	"fmt"
	"strings"

	"OrderPulse/entity"
)

// providerResult is the JSON shape the model is instructed to return.
type providerResult struct {
	OrderDetected    bool                    `json:"order_detected"`
	Confidence       float64                 `json:"confidence"`
	Intent           string                  `json:"intent"`
	Product          string                  `json:"product"`
	Quantity         int                     `json:"quantity"`
	Price            float64                 `json:"price"`
	DeliveryAddress  string                  `json:"delivery_address"`
	Contact          string                  `json:"contact"`
	Notes            string                  `json:"notes"`
	SuggestedReplies []entity.SuggestedReply `json:"suggested_replies"`
}

const systemPrompt = `You analyze customer messages sent to small online sellers in Nigeria.
Messages may be in English or Nigerian Pidgin. Decide whether the customer is
trying to place an order and extract order details.

Respond with JSON only, matching exactly this schema:
{
  "order_detected": bool,
  "confidence": number between 0 and 1,
  "intent": one of "inquiry","purchase","complaint","support","negotiation","cancellation","follow-up",
  "product": string,
  "quantity": integer,
  "price": number,
  "delivery_address": string,
  "contact": string,
  "notes": string,
  "suggested_replies": [{"text": string, "type": string, "tone": string, "language": "en" or "pcm", "confidence": number}]
}
Omit unknown fields by leaving them empty. Do not wrap the JSON in markdown.`

func buildUserPrompt(content string, context []string) string {
	var b strings.Builder
	if len(context) > 0 {
		b.WriteString("Recent conversation, oldest first:\n")
		for _, line := range context {
			b.WriteString("- ")
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Customer message to analyze:\n")
	b.WriteString(content)
	return b.String()
}

// parseProviderResponse coerces free-text model output into the structured
// result. One cleanup pass strips markdown code fences; anything still
// malformed after that counts as a provider failure.
func parseProviderResponse(raw string) (*providerResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result providerResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("malformed provider response: %w", err)
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1 {
		result.Confidence = 1
	}

	return &result, nil
}

func validIntent(intent string) bool {
	switch intent {
	case entity.IntentInquiry, entity.IntentPurchase, entity.IntentComplaint,
		entity.IntentSupport, entity.IntentNegotiation, entity.IntentCancellation,
		entity.IntentFollowUp:
		return true
	}
	return false
}
