package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/masaha03/chatgpt-app/internal/config"
)

// Base URLs of the supported OpenAI-compatible providers
const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAI implements Transport against an OpenAI-compatible chat completion API
type OpenAI struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Headers map[string]string

	// client is used for non-streaming calls. Streams use streamClient, which
	// has no overall timeout so long replies are not cut off; a silent server
	// blocks until the caller cancels.
	client       *http.Client
	streamClient *http.Client
	logger       *slog.Logger

	// keyOptional is set for local proxies that accept unauthenticated calls
	keyOptional bool
}

// NewOpenAIWithKey creates a new OpenAI transport with explicit API key
func NewOpenAIWithKey(apiKey, model string) *OpenAI {
	return &OpenAI{
		APIKey:       apiKey,
		Model:        model,
		BaseURL:      OpenAIBaseURL,
		Timeout:      2 * time.Minute,
		client:       &http.Client{Timeout: 2 * time.Minute},
		streamClient: &http.Client{},
		logger:       slog.Default(),
	}
}

// NewProvider creates a transport for a configured provider name
// ("openai", "openrouter", "litellm") using the API key from config or env
func NewProvider(provider, model string) (*OpenAI, error) {
	provider = strings.ToLower(provider)
	o := NewOpenAIWithKey(config.GetAPIKey(provider), model)

	switch provider {
	case "", "openai":
	case "openrouter":
		o.BaseURL = OpenRouterBaseURL
		o.Headers = map[string]string{
			"HTTP-Referer": "https://github.com/masaha03/chatgpt-app",
			"X-Title":      "chatgpt-app",
		}
	case "litellm":
		o.BaseURL = config.GetLiteLLMBaseURL()
		o.keyOptional = true
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: openai, openrouter, litellm)", provider)
	}
	return o, nil
}

// WithLogger sets the logger used by the transport and its decoders
func (o *OpenAI) WithLogger(logger *slog.Logger) *OpenAI {
	if logger != nil {
		o.logger = logger
	}
	return o
}

// WithHTTPClient replaces both HTTP clients, mainly for tests
func (o *OpenAI) WithHTTPClient(client *http.Client) *OpenAI {
	o.client = client
	o.streamClient = client
	return o
}

// newRequest builds an authenticated POST to /chat/completions
func (o *OpenAI) newRequest(ctx context.Context, messages []Message, stream bool) (*http.Request, error) {
	if o.APIKey == "" && !o.keyOptional {
		return nil, ErrMissingAPIKey
	}

	reqBody := completionRequest{
		Model:    o.Model,
		Messages: messages,
		Stream:   stream,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(o.BaseURL, "/")+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.APIKey)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	for k, v := range o.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Complete calls the API without streaming and returns the first choice
func (o *OpenAI) Complete(ctx context.Context, messages []Message) (string, error) {
	req, err := o.newRequest(ctx, messages, false)
	if err != nil {
		return "", err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := statusText(resp)
		if apiMsg := parseAPIError(body); apiMsg != "" {
			msg += ": " + apiMsg
		}
		return "", &TransportError{StatusCode: resp.StatusCode, Message: msg}
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if completion.Error != nil {
		return "", fmt.Errorf("API error: %s", completion.Error.Message)
	}

	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	return completion.Choices[0].Message.Content, nil
}

// StreamCompletion starts a streaming completion. The returned decoder owns
// the response body.
func (o *OpenAI) StreamCompletion(ctx context.Context, messages []Message) (*Decoder, error) {
	req, err := o.newRequest(ctx, messages, true)
	if err != nil {
		return nil, err
	}

	resp, err := o.streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("request failed: %w", err)
	}

	o.logger.Debug("stream opened", "model", o.Model, "status", resp.StatusCode, "messages", len(messages))
	return OpenStream(resp, WithDecoderLogger(o.logger))
}

// ModelName returns the model being used
func (o *OpenAI) ModelName() string {
	return o.Model
}
