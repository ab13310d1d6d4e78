package patterns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OrderPulse/entity"
)

func TestClassify_PidginPurchaseWithQuantityAndDelivery(t *testing.T) {
	c := New()

	result := c.Classify("I wan buy 2 bags, how much e be, send to Lekki")

	assert.True(t, result.OrderDetected)
	assert.Greater(t, result.Confidence, 0.0)
	assert.Equal(t, entity.IntentPurchase, result.Intent)

	require.NotNil(t, result.Order)
	assert.Equal(t, 2, result.Order.Quantity)
	assert.Contains(t, result.Order.DeliveryAddress, "Lekki")
	require.NotEmpty(t, result.SuggestedReplies)
}

func TestClassify_FormalPurchase(t *testing.T) {
	c := New()

	result := c.Classify("Hello, I want to buy 5 pieces. I will pay by transfer today.")

	assert.True(t, result.OrderDetected)
	assert.Equal(t, entity.IntentPurchase, result.Intent)
	require.NotNil(t, result.Order)
	assert.Equal(t, 5, result.Order.Quantity)
}

func TestClassify_PurchaseRuleWithoutThreshold(t *testing.T) {
	c := New()

	// Direct purchase phrase plus payment word, but below raw score threshold
	// on its own categories, the AND rule still fires.
	result := c.Classify("i wan buy, send your account")

	assert.True(t, result.OrderDetected)
}

func TestClassify_SecondaryIntentPriority(t *testing.T) {
	c := New()

	tests := []struct {
		name string
		text string
		want string
	}{
		{"negotiation beats complaint", "last price? the other one was damaged", entity.IntentNegotiation},
		{"complaint", "the item arrived damaged, i want a refund", entity.IntentComplaint},
		{"support", "how do i set it up?", entity.IntentSupport},
		{"cancellation", "please cancel, i changed my mind", entity.IntentCancellation},
		{"follow-up", "any update on my delivery?", entity.IntentFollowUp},
		{"inquiry fallback", "hello there", entity.IntentInquiry},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := c.Classify(tc.text)
			assert.False(t, result.OrderDetected)
			assert.Equal(t, tc.want, result.Intent)
		})
	}
}

func TestClassify_EmptyInput(t *testing.T) {
	c := New()

	result := c.Classify("   ")

	assert.False(t, result.OrderDetected)
	assert.Zero(t, result.Confidence)
	assert.Nil(t, result.Order)
}

func TestClassify_ConfidenceClamp(t *testing.T) {
	c := New()

	result := c.Classify("i want to buy i wan buy i will buy 10 bags transfer payment deliver urgent asap discount last price 🔥❤️😍")

	assert.True(t, result.OrderDetected)
	assert.LessOrEqual(t, result.Confidence, 1.0)
}

func TestExtractOrder_Prices(t *testing.T) {
	tests := []struct {
		name string
		text string
		want float64
	}{
		{"naira symbol", "it costs ₦5,000 right?", 5000},
		{"suffix", "i can pay 2500 naira", 2500},
		{"k shorthand", "make we do 5k", 5000},
		{"m shorthand", "the land na 1.5m", 1500000},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New()
			result := c.Classify(tc.text)
			require.NotNil(t, result.Order)
			assert.Equal(t, tc.want, result.Order.Price)
		})
	}
}

func TestExtractOrder_Phone(t *testing.T) {
	c := New()

	result := c.Classify("call me on 08031234567")

	require.NotNil(t, result.Order)
	assert.Equal(t, "08031234567", result.Order.Contact)
}
