package ai

// MessageRole is the author of a generation message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a generation request.
type Message struct {
	Role    MessageRole
	Content string
}

// SystemMessage returns a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage returns a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage returns an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// GenerateOptions holds per-call generation parameters.
// Zero values mean "use the provider default".
type GenerateOptions struct {
	Temperature    float64
	HasTemperature bool
	MaxTokens      int
	JSONMode       bool
}

// GenerateOption configures a single GenerateText call.
type GenerateOption func(*GenerateOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = t
		o.HasTemperature = true
	}
}

// WithMaxTokens caps the number of generated tokens.
func WithMaxTokens(n int) GenerateOption {
	return func(o *GenerateOptions) {
		o.MaxTokens = n
	}
}

// WithJSONMode asks the model for a JSON object response.
func WithJSONMode() GenerateOption {
	return func(o *GenerateOptions) {
		o.JSONMode = true
	}
}

// ApplyGenerateOptions folds opts into a GenerateOptions value.
func ApplyGenerateOptions(opts ...GenerateOption) GenerateOptions {
	var o GenerateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Detection is the outcome of language detection.
type Detection struct {
	// Code is an ISO 639-1 code in lower case (e.g. "en", "es").
	Code string
	// Confidence is in [0, 1].
	Confidence float64
}
