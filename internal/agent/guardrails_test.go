package agent

import "testing"

func TestCheckGuardrailsAllowsDomainQueries(t *testing.T) {
	queries := []string{
		"Show me your jackets",
		"What's the status of order ORD-001?",
		"I'd like to book a fitting appointment next week",
		"Do you have any merino wool sweaters in stock?",
		"Can I return an item I bought last month?",
		"Tell me about your shipping policy",
		"I need help finding a gift",
	}

	for _, query := range queries {
		result := CheckGuardrails(query)
		if !result.Allowed {
			t.Errorf("Expected query %q to be allowed, got blocked with reason %q", query, result.Reason)
		}
	}
}

func TestCheckGuardrailsBlocksOffTopicPatterns(t *testing.T) {
	queries := []string{
		"What is the capital of France?",
		"Tell me about quantum physics",
		"Write python code to sort a list please",
		"I need legal advice about a lawsuit",
		"What's the latest news today?",
		"Can you recommend car insurance?",
		"I want a good laptop for gaming",
	}

	for _, query := range queries {
		result := CheckGuardrails(query)
		if result.Allowed {
			t.Errorf("Expected query %q to be blocked", query)
			continue
		}
		if result.Reason != reasonBlocked {
			t.Errorf("Expected reason %q for %q, got %q", reasonBlocked, query, result.Reason)
		}
	}
}

func TestCheckGuardrailsEmptyQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\n\t"} {
		result := CheckGuardrails(query)
		if result.Allowed {
			t.Errorf("Expected empty query %q to be blocked", query)
		}
		if result.Reason != reasonEmpty {
			t.Errorf("Expected reason %q, got %q", reasonEmpty, result.Reason)
		}
	}
}

func TestCheckGuardrailsShortQueriesAreLenient(t *testing.T) {
	// One or two words pass even with no domain vocabulary.
	for _, query := range []string{"quantum physics", "hm", "red one"} {
		result := CheckGuardrails(query)
		if !result.Allowed {
			t.Errorf("Expected short query %q to be allowed, got reason %q", query, result.Reason)
		}
	}
}

func TestCheckGuardrailsConversationalOpeners(t *testing.T) {
	// No domain words, more than two words, but opens conversationally.
	queries := []string{
		"hello there my friend how are things",
		"thanks so much for everything today really",
	}
	for _, query := range queries {
		result := CheckGuardrails(query)
		if !result.Allowed {
			t.Errorf("Expected conversational query %q to be allowed, got reason %q", query, result.Reason)
		}
	}
}

func TestCheckGuardrailsLongQueryWithoutTopics(t *testing.T) {
	query := "the weather seems quite gloomy over there these days"
	result := CheckGuardrails(query)
	if result.Allowed {
		t.Fatalf("Expected long off-topic query to be blocked")
	}
	if result.Reason != reasonOffTopic {
		t.Errorf("Expected reason %q, got %q", reasonOffTopic, result.Reason)
	}
}

func TestCheckGuardrailsMidLengthQueryDefaultsToAllow(t *testing.T) {
	// 3-5 words, no topics, no opener: allowed to avoid false positives.
	result := CheckGuardrails("something about that thing")
	if !result.Allowed {
		t.Errorf("Expected mid-length query to be allowed, got reason %q", result.Reason)
	}
}

func TestCheckGuardrailsIsDeterministic(t *testing.T) {
	query := "Do you have any merino wool sweaters in stock?"
	first := CheckGuardrails(query)
	for i := 0; i < 10; i++ {
		got := CheckGuardrails(query)
		if got != first {
			t.Fatalf("Expected stable result, got %+v then %+v", first, got)
		}
	}
}
