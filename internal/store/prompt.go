package store

import "fmt"

const (
	defaultPersonality = "professional and helpful"

	configKeyPersonality = "ai_personality"
	configKeyGreeting    = "greeting_message"
	configKeyVoice       = "voice"
)

func defaultGreeting(businessName string) string {
	return fmt.Sprintf("Hello! Thanks for calling %s. How can I help you today?", businessName)
}

// BuildSystemPrompt assembles the phone-assistant system prompt for a
// business. Empty personality or greeting fall back to defaults.
func BuildSystemPrompt(name, domain, personality, greeting string) string {
	if personality == "" {
		personality = defaultPersonality
	}
	if greeting == "" {
		greeting = defaultGreeting(name)
	}

	return fmt.Sprintf(`You are an AI phone assistant for %s, a %s business.

PERSONALITY:
%s

GREETING:
When the call starts, greet the caller with: "%s"

GUIDELINES:
- Be conversational and natural
- Keep responses brief and to the point (this is a phone call)
- Use the query_knowledge_base function when you need specific information about the business
- If you don't know something and can't find it in the knowledge base, say so honestly
- Be helpful and try to resolve the caller's needs
- Stay in character for the business domain (%s)

KNOWLEDGE BASE:
Use the query_knowledge_base function to search for information about:
- Products and services
- Pricing and availability
- Business hours and location
- Policies and procedures
- FAQs

Always query the knowledge base when the caller asks about specific details.`,
		name, domain, personality, greeting, domain)
}
