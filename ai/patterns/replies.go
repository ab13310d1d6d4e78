package patterns

import "OrderPulse/entity"

// suggestedReplies returns canned replies per classified intent. Confidence
// here reflects how safe the canned text is to send untouched.
func suggestedReplies(intent string) []entity.SuggestedReply {
	switch intent {
	case entity.IntentPurchase:
		return []entity.SuggestedReply{
			{
				Text:       "Thank you for your order! Please confirm the quantity and your delivery address so we can process it right away.",
				Type:       "order_confirmation",
				Tone:       "professional",
				Language:   "en",
				Confidence: 0.8,
			},
			{
				Text:       "Your order don enter! Abeg confirm how many you want and where we go deliver am.",
				Type:       "order_confirmation",
				Tone:       "friendly",
				Language:   "pcm",
				Confidence: 0.7,
			},
		}
	case entity.IntentNegotiation:
		return []entity.SuggestedReply{
			{
				Text:       "We appreciate your interest! This is our best price, but we can offer free delivery on orders of 3 or more.",
				Type:       "negotiation",
				Tone:       "professional",
				Language:   "en",
				Confidence: 0.6,
			},
		}
	case entity.IntentComplaint:
		return []entity.SuggestedReply{
			{
				Text:       "We're very sorry about this. Please share a photo or details of the issue and we will resolve it immediately.",
				Type:       "apology",
				Tone:       "empathetic",
				Language:   "en",
				Confidence: 0.7,
			},
		}
	case entity.IntentSupport:
		return []entity.SuggestedReply{
			{
				Text:       "Happy to help! Could you tell us a bit more about what you need assistance with?",
				Type:       "support",
				Tone:       "friendly",
				Language:   "en",
				Confidence: 0.7,
			},
		}
	case entity.IntentCancellation:
		return []entity.SuggestedReply{
			{
				Text:       "No problem, we've noted the cancellation. Let us know if you change your mind — we'd love to have you back.",
				Type:       "cancellation",
				Tone:       "professional",
				Language:   "en",
				Confidence: 0.7,
			},
		}
	case entity.IntentFollowUp:
		return []entity.SuggestedReply{
			{
				Text:       "Thanks for your patience! Your order is on track — we'll send you the delivery update shortly.",
				Type:       "follow_up",
				Tone:       "professional",
				Language:   "en",
				Confidence: 0.6,
			},
		}
	default:
		return []entity.SuggestedReply{
			{
				Text:       "Thanks for reaching out! How can we help you today?",
				Type:       "greeting",
				Tone:       "friendly",
				Language:   "en",
				Confidence: 0.6,
			},
		}
	}
}
