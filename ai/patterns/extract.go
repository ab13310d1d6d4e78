package patterns

import (
	"regexp"
	"strconv"
	"strings"

	"OrderPulse/entity"
)

var (
	// "2 bags", "3x", "x3", "5 pcs"
	quantityPattern = regexp.MustCompile(`(?i)\b(\d{1,4})\s*(?:x\b|pcs?\b|pieces?\b|bags?\b|cartons?\b|packs?\b|units?\b|dozen\b|sets?\b|pairs?\b)`)
	quantityXFirst  = regexp.MustCompile(`(?i)\bx\s*(\d{1,4})\b`)

	// "₦5,000", "NGN 2500", "N3000"
	pricePrefixed = regexp.MustCompile(`(?i)(?:₦|ngn|\bn)\s*([\d,]+(?:\.\d+)?)`)
	// "5000 naira"
	priceSuffixed = regexp.MustCompile(`(?i)\b([\d,]+(?:\.\d+)?)\s*(?:naira|ngn)\b`)
	// "5k", "1.5m" shorthand multipliers
	priceShorthand = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*([km])\b`)

	// local mobile formats, with or without country code
	phonePattern = regexp.MustCompile(`(?:\+?234|0)[789][01]\d{8}`)

	// "send (it/am) to <place...>"
	sendToPattern = regexp.MustCompile(`(?i)\bsend\s+(?:it\s+|am\s+)?to\s+([a-z][a-z\s]{2,40})`)
)

// extractOrder scans for quantity, price, phone and delivery-address mentions.
// Returns nil when nothing was found.
func extractOrder(original, lower string) *entity.ExtractedOrder {
	order := &entity.ExtractedOrder{}
	found := false

	if m := quantityPattern.FindStringSubmatch(lower); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
			order.Quantity = qty
			found = true
		}
	} else if m := quantityXFirst.FindStringSubmatch(lower); m != nil {
		if qty, err := strconv.Atoi(m[1]); err == nil && qty > 0 {
			order.Quantity = qty
			found = true
		}
	}

	if price, ok := extractPrice(lower); ok {
		order.Price = price
		found = true
	}

	if m := phonePattern.FindString(original); m != "" {
		order.Contact = m
		found = true
	}

	if addr := extractAddress(lower); addr != "" {
		order.DeliveryAddress = addr
		found = true
	}

	if !found {
		return nil
	}
	return order
}

func extractPrice(lower string) (float64, bool) {
	if m := pricePrefixed.FindStringSubmatch(lower); m != nil {
		if v, err := parseAmount(m[1]); err == nil {
			return v, true
		}
	}
	if m := priceSuffixed.FindStringSubmatch(lower); m != nil {
		if v, err := parseAmount(m[1]); err == nil {
			return v, true
		}
	}
	if m := priceShorthand.FindStringSubmatch(lower); m != nil {
		v, err := parseAmount(m[1])
		if err != nil {
			return 0, false
		}
		switch m[2] {
		case "k":
			return v * 1_000, true
		case "m":
			return v * 1_000_000, true
		}
	}
	return 0, false
}

func parseAmount(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
}

// extractAddress prefers an explicit "send to ..." phrase that names a known
// place, falling back to a bare place-name mention.
func extractAddress(lower string) string {
	if m := sendToPattern.FindStringSubmatch(lower); m != nil {
		candidate := strings.TrimSpace(m[1])
		for _, place := range knownPlaces {
			if strings.Contains(candidate, place) {
				return titleCase(candidate)
			}
		}
	}
	for _, place := range knownPlaces {
		if strings.Contains(lower, place) {
			return titleCase(place)
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
