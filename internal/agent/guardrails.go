package agent

import (
	"log/slog"
	"regexp"
	"strings"
)

// GuardrailResult is the outcome of the rule-based input filter.
type GuardrailResult struct {
	Allowed bool
	Reason  string
}

// Topics the agent can handle.
var allowedTopics = wordSet(
	// Product-related
	"product", "products", "item", "items", "clothing", "apparel",
	"jacket", "coat", "sweater", "shirt", "pants", "trousers", "dress",
	"suit", "bag", "accessory", "accessories", "leather", "wool",
	"cashmere", "merino", "collection", "catalog", "inventory", "stock",
	"size", "color", "style", "fashion", "wear", "outfit", "wardrobe",
	// Order-related
	"email", "order", "orders", "purchase", "buy", "bought", "ordered",
	"cart", "checkout", "payment", "shipping", "delivery", "cancel",
	"modify", "change", "update", "swap", "replace", "return", "refund",
	"exchange", "like",
	// Appointment-related
	"appointment", "appointments", "schedule", "reschedule", "booking",
	"book", "meeting", "session", "consultation", "fitting", "tailoring",
	"styling", "stylist", "alteration", "alterations", "custom",
	"personalized",
	// Policy-related
	"policy", "policies", "warranty", "guarantee", "terms", "privacy",
	"vip", "membership", "loyalty", "program",
	// General service terms
	"help", "assist", "show", "find", "search", "look", "looking",
	"need", "want", "interested", "available", "recommend",
	"recommendation", "suggest", "status", "check", "view", "browse",
	"price", "cost", "expensive", "affordable", "luxury", "premium",
	"quality", "brand", "account", "profile", "preferences",
)

var conversationalStarters = wordSet(
	"hi", "hello", "hey", "thanks", "thank", "yes", "no", "ok", "okay", "sure",
)

// Patterns that clearly indicate off-topic queries. Matched against the
// lowercased query, one category per entry.
var blockedPatterns = []*regexp.Regexp{
	// General knowledge/trivia
	regexp.MustCompile(`\b(what|who|when|where|why|how)\s+(is|are|was|were|did)\s+(the\s+)?(capital|president|population|history|war|battle)`),
	regexp.MustCompile(`\b(tell me about|explain|describe)\s+(the\s+)?(history|geography|politics|science|biology|chemistry|physics|quantum|astronomy|geology|anthropology|sociology|psychology)`),
	// Math/calculations
	regexp.MustCompile(`\b(calculate|compute|solve|what is|what's)\s+\d+\s*[\+\-\*/]\s*\d+`),
	regexp.MustCompile(`\bmath(ematics)?\s+(problem|equation|formula)`),
	// Programming/technical
	regexp.MustCompile(`\b(python|javascript|java|code|programming|function|algorithm|debug)`),
	regexp.MustCompile(`\b(how to (write|program|code)|syntax error)`),
	// Medical/health
	regexp.MustCompile(`\b(medical|doctor|disease|symptom|diagnosis|treatment|medicine|drug|prescription|health issue)`),
	// Legal
	regexp.MustCompile(`\b(legal advice|lawyer|attorney|lawsuit|contract|sue|litigation)`),
	// News/current events
	regexp.MustCompile(`\b(latest news|current events|breaking news|headlines)`),
	// Unrelated shopping
	regexp.MustCompile(`\b(car|auto|vehicle|insurance|real estate|house|property|mortgage|loan)`),
	regexp.MustCompile(`\b(grocery|groceries|food delivery|restaurant|recipe)`),
	regexp.MustCompile(`\b(electronics|computer|laptop|phone|smartphone|tablet|gaming)`),
	// Entertainment (unless related to events/styling)
	regexp.MustCompile(`\b(movie|film|tv show|series|netflix|music|song|album|concert)\s+(recommendation|review)`),
	// Personal advice
	regexp.MustCompile(`\b(relationship|dating|breakup|marriage|divorce|personal problem)`),
	// Travel (unless related to appointments)
	regexp.MustCompile(`\b(flight|hotel|vacation|travel package|tourism|tourist)`),
	// Education
	regexp.MustCompile(`\b(homework|essay|thesis|dissertation|study|quiz)`),
}

var wordRe = regexp.MustCompile(`\w+`)

const (
	reasonEmpty    = "Empty query"
	reasonBlocked  = "Query topic is outside our service scope"
	reasonOffTopic = "Query doesn't appear to be about products, orders, appointments, or our services"
)

// CheckGuardrails decides whether a user query is within the agent's scope.
// The check is purely rule-based and deterministic; no model call is made.
func CheckGuardrails(query string) GuardrailResult {
	if strings.TrimSpace(query) == "" {
		return GuardrailResult{Allowed: false, Reason: reasonEmpty}
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))

	// Blocked patterns win over everything else.
	for _, pattern := range blockedPatterns {
		if pattern.MatchString(queryLower) {
			slog.Warn("query blocked by guardrails", "pattern", pattern.String())
			return GuardrailResult{Allowed: false, Reason: reasonBlocked}
		}
	}

	words := wordRe.FindAllString(queryLower, -1)

	// Very short queries get the benefit of the doubt.
	if len(words) <= 2 {
		return GuardrailResult{Allowed: true}
	}

	for _, word := range words {
		if _, ok := allowedTopics[word]; ok {
			return GuardrailResult{Allowed: true}
		}
	}

	// A conversational opener in the first few words reads as small talk,
	// not an off-topic request.
	for _, word := range words[:min(3, len(words))] {
		if _, ok := conversationalStarters[word]; ok {
			return GuardrailResult{Allowed: true}
		}
	}

	// Longer queries with no domain vocabulary at all are likely off-topic.
	if len(words) > 5 {
		slog.Warn("query blocked by guardrails", "reason", "no allowed topics in longer query")
		return GuardrailResult{Allowed: false, Reason: reasonOffTopic}
	}

	// Default: allow, to avoid false positives on short ambiguous queries.
	return GuardrailResult{Allowed: true}
}

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
