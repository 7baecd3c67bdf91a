package chat

import (
	"context"
	"net"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"

	"github.com/kendrekaran/AI-Chatbots/pkg/settings"
)

// OpenAIClient talks to the OpenAI chat completion endpoint (or any
// compatible server via base URL override).
type OpenAIClient struct {
	apiKey  string
	baseURL string
}

var _ Client = (*OpenAIClient)(nil)

func NewOpenAIClient(cs *settings.ClientSettings) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  cs.APIKey,
		baseURL: cs.BaseURL,
	}
}

func (c *OpenAIClient) Complete(ctx context.Context, history []Turn, rc RequestContext) (string, error) {
	if c.apiKey == "" {
		return "", NewCompletionError(ErrorKindMissingCredential, "no API key configured")
	}

	cfg := go_openai.DefaultConfig(c.apiKey)
	if c.baseURL != "" {
		cfg.BaseURL = c.baseURL
	}
	client := go_openai.NewClientWithConfig(cfg)

	req := go_openai.ChatCompletionRequest{
		Model:    rc.Model,
		Messages: makeMessages(history, rc),
	}
	if rc.Temperature != nil {
		req.Temperature = float32(*rc.Temperature)
	}
	if rc.MaxTokens != nil {
		req.MaxTokens = *rc.MaxTokens
	}

	log.Debug().
		Str("model", rc.Model).
		Int("history_length", len(req.Messages)).
		Msg("sending completion request")

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		completionErr := mapError(err)
		log.Warn().
			Str("kind", string(completionErr.Kind)).
			Str("message", completionErr.Message).
			Msg("completion request failed")
		return "", completionErr
	}

	if len(resp.Choices) == 0 {
		return "", NewCompletionError(ErrorKindMalformedResponse, "response contains no choices")
	}

	content := resp.Choices[0].Message.Content
	log.Debug().Int("response_length", len(content)).Msg("completion request succeeded")
	return content, nil
}

func makeMessages(history []Turn, rc RequestContext) []go_openai.ChatCompletionMessage {
	msgs := make([]go_openai.ChatCompletionMessage, 0, len(history)+1)
	if rc.SystemPrompt != "" {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    go_openai.ChatMessageRoleSystem,
			Content: rc.SystemPrompt,
		})
	}
	for _, turn := range history {
		msgs = append(msgs, go_openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}
	return msgs
}

// mapError folds transport and API failures into the completion error
// taxonomy. API error messages are carried verbatim so the user sees what the
// server said.
func mapError(err error) *CompletionError {
	var apiErr *go_openai.APIError
	if errors.As(err, &apiErr) {
		return mapStatusCode(apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *go_openai.RequestError
	if errors.As(err, &reqErr) {
		return mapStatusCode(reqErr.HTTPStatusCode, reqErr.Error())
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return NewCompletionError(ErrorKindNetwork, urlErr.Error())
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewCompletionError(ErrorKindNetwork, netErr.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewCompletionError(ErrorKindNetwork, err.Error())
	}

	return NewCompletionError(ErrorKindOther, err.Error())
}

func mapStatusCode(status int, message string) *CompletionError {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewCompletionError(ErrorKindUnauthorized, message)
	case http.StatusTooManyRequests:
		return NewCompletionError(ErrorKindRateLimited, message)
	default:
		return NewCompletionError(ErrorKindOther, message)
	}
}
