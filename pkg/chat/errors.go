package chat

import "fmt"

// ErrorKind classifies a failed completion request. The session controller
// treats every kind uniformly (surface the message, no retry); the kind is
// kept so callers and logs can tell transport problems from credential ones.
type ErrorKind string

const (
	ErrorKindMissingCredential ErrorKind = "missing-credential"
	ErrorKindNetwork           ErrorKind = "network"
	ErrorKindUnauthorized      ErrorKind = "unauthorized"
	ErrorKindRateLimited       ErrorKind = "rate-limited"
	ErrorKindMalformedResponse ErrorKind = "malformed-response"
	ErrorKindOther             ErrorKind = "other"
)

// CompletionError is the terminal failure of one completion request.
type CompletionError struct {
	Kind    ErrorKind
	Message string
}

func (e *CompletionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func NewCompletionError(kind ErrorKind, message string) *CompletionError {
	return &CompletionError{Kind: kind, Message: message}
}

// UserMessage is the text surfaced to the user for a failed request.
func (e *CompletionError) UserMessage() string {
	switch e.Kind {
	case ErrorKindMissingCredential:
		return "No API key configured. Set OPENAI_API_KEY or add one to your config file."
	case ErrorKindNetwork:
		return "Network error. Please check your connection and try again."
	case ErrorKindUnauthorized:
		return "Invalid API key. Please check your credentials."
	case ErrorKindRateLimited:
		return "Rate limit exceeded. Please wait a moment before retrying."
	case ErrorKindMalformedResponse:
		return "The API returned an unexpected response."
	default:
		return e.Message
	}
}
