package assistant

import (
	"fmt"
	"strings"

	"github.com/lukechats/retail-backend/internal/catalog"
)

// apologyReply is the fixed degraded-mode answer. It is the worst outcome a
// caller can see from a provider failure.
const apologyReply = "Sorry, something went wrong."

// policyInstruction grounds the stateless policy mode. No catalog data is
// mixed in.
const policyInstruction = `You are a helpful assistant for a retail store. Answer customer questions using only the store policies below.
Store policies:
- Standard delivery takes 3 to 5 working days; express delivery is next working day when ordered before 2pm.
- Unused items can be returned within 30 days of delivery for a full refund with proof of purchase.
- Faulty items can be returned at any time within the warranty period.
- We accept all major debit and credit cards.
If a question is not covered by these policies, say so and suggest contacting customer support.`

// recommendationInstruction builds the system instruction for product
// recommendations, listing every purchasable product one per line.
func recommendationInstruction(products []catalog.ProductDTO) string {
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("- %s: %s (%s)", p.Name, p.Description, p.Price))
	}
	return "You are a helpful assistant. Here are the current products available:\n" +
		strings.Join(lines, "\n") +
		"\nRecommend products to users based on their needs."
}
