package patterns

import (
	"strings"

	"OrderPulse/entity"
)

// Result is the offline classification of one message.
type Result struct {
	OrderDetected    bool
	Confidence       float64
	Intent           string
	Order            *entity.ExtractedOrder
	SuggestedReplies []entity.SuggestedReply
}

// Classifier detects purchase intent from message text without any external
// call. It serves both as a confidence booster next to the AI provider and as
// a full fallback when the provider path is unavailable.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// Classify scores the text against the weighted keyword sets and extracts
// order entities. Malformed or empty input yields a zero-confidence result.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Result{Intent: entity.IntentInquiry}
	}

	purchaseHits := countHits(lower, purchaseKeywords)
	quantityHits := countHits(lower, quantityKeywords)
	if quantityHits == 0 && quantityPattern.MatchString(lower) {
		quantityHits = 1
	}
	paymentHits := countHits(lower, paymentKeywords)
	deliveryHits := countHits(lower, deliveryKeywords)
	urgencyHits := countHits(lower, urgencyKeywords)
	negotiationHits := countHits(lower, negotiationKeywords)
	emojiHits := countHits(text, positiveEmojis)

	score := float64(purchaseHits)*weightPurchase +
		float64(quantityHits)*weightQuantity +
		float64(paymentHits)*weightPayment +
		float64(deliveryHits)*weightDelivery +
		float64(urgencyHits)*weightUrgency +
		float64(negotiationHits)*weightNegotiation +
		float64(emojiHits)*weightEmoji

	orderDetected := score >= purchaseScoreThreshold ||
		(purchaseHits > 0 && (quantityHits > 0 || paymentHits > 0))

	confidence := score / confidenceNormalizer
	if confidence > 1 {
		confidence = 1
	}

	result := Result{
		OrderDetected: orderDetected,
		Confidence:    confidence,
	}

	if orderDetected {
		result.Intent = entity.IntentPurchase
	} else {
		result.Intent = secondaryIntent(lower, negotiationHits)
	}

	result.Order = extractOrder(text, lower)
	result.SuggestedReplies = suggestedReplies(result.Intent)

	return result
}

// secondaryIntent classifies non-purchase messages in fixed priority order.
func secondaryIntent(lower string, negotiationHits int) string {
	switch {
	case negotiationHits > 0:
		return entity.IntentNegotiation
	case countHits(lower, complaintKeywords) > 0:
		return entity.IntentComplaint
	case countHits(lower, supportKeywords) > 0:
		return entity.IntentSupport
	case countHits(lower, cancellationKeywords) > 0:
		return entity.IntentCancellation
	case countHits(lower, followUpKeywords) > 0:
		return entity.IntentFollowUp
	default:
		return entity.IntentInquiry
	}
}

func countHits(text string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			hits++
		}
	}
	return hits
}
