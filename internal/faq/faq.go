// Package faq answers general studio questions (pricing, address, opening
// hours) that fall outside the booking flow.
package faq

import (
	"regexp"
	"strings"

	"github.com/clayhaus/bookingbot/internal/extract"
)

// FallbackAnswer is sent when the responder fails or times out.
const FallbackAnswer = "Sorry, I can't look that up right now. Please try again in a moment, or ask about booking a workshop."

var queryKeywords = []string{
	"price", "prices", "pricing", "cost", "costs", "how much",
	"address", "where are you", "where is", "location", "directions", "parking",
	"opening hours", "open", "opening", "closed", "close",
	"voucher", "gift card", "giftcard",
	"what do you", "do you offer", "do you have", "can i bring",
	"glaze", "glazing", "firing", "kiln", "wheel", "handbuilding",
}

var durationStatementRE = regexp.MustCompile(`\b\d+\s*(h|hr|hrs|hour|hours)\b`)

// IsQuery reports whether the text reads like a general question rather than
// a booking answer. Duration statements such as "2 hours" are excluded so a
// customer answering the duration question is never routed away from the
// wizard.
func IsQuery(text string) bool {
	norm := extract.Normalize(text)
	if norm == "" {
		return false
	}
	if durationStatementRE.MatchString(norm) {
		return false
	}
	if _, ok := extract.BareDurationHours(norm); ok {
		return false
	}
	for _, kw := range queryKeywords {
		if strings.Contains(norm, kw) {
			return true
		}
	}
	return false
}
