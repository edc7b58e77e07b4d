package prompt

// DefaultVersion is the active version of the built-in registry.
const DefaultVersion = "1.1.0"

const (
	preamble = `You are an AI assistant helping users understand content from a library of podcast transcripts.

IMPORTANT: This is a conversational chat. The user may ask follow-up questions that reference previous parts of our conversation. Always consider the conversation history when answering.

Use the following transcript excerpts to answer the current question. Be precise, cite specific details from the transcripts, and explain scientific concepts clearly. If the information isn't in the provided context, say so - but you can still reference what we discussed earlier in this conversation.
`

	cautions = `
These transcripts sometimes contain informal speech, filler words, and non-scientific language. Focus on extracting the key scientific insights and actionable advice. They may also refer to personal experiences that are not necessarily scientific facts, so be cautious about treating those as universal truths.

Do not mention chapter names in the answer; they are sometimes mixed up and may confuse the user.
`

	multilingual = `
CRITICAL: The user's question is in {language}. You MUST respond in {language}. Translate your entire answer, including all explanations and examples, into {language}.
`

	contextBlock = `
Context from transcripts:
{context}

Remember: If the user asks "Can you elaborate?" or "What about that other thing?" or uses "it", "that", "this" - refer to our previous conversation to understand what they're asking about.`
)

// builtinTemplates are the versions shipped with the binary.
var builtinTemplates = []Template{
	{
		Version:   "1.0.0",
		Date:      "2026-01-26",
		Changelog: "Initial prompt with conversation history support",
		System:    preamble + contextBlock,
		Human:     "{question}",
	},
	{
		Version:   "1.1.0",
		Date:      "2026-01-26",
		Changelog: "Added warnings: informal speech/personal experiences, don't mention chapter names",
		System:    preamble + cautions + contextBlock,
		Human:     "{question}",
	},
	{
		Version:   "1.2.0",
		Date:      "2026-01-27",
		Changelog: "Added multilingual support - answer in user's language",
		System:    preamble + cautions + multilingual + contextBlock,
		Human:     "{question}",
	},
}

// DefaultRegistry returns the built-in templates with the given active
// version. An empty version selects DefaultVersion.
func DefaultRegistry(active string) (*Registry, error) {
	if active == "" {
		active = DefaultVersion
	}
	return NewRegistry(active, builtinTemplates...)
}
