package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client represents a generic LLM API client
// Provides chat completions, including multimodal (vision) requests
// Thread-safe for concurrent use
//
// config: Configuration for the LLM API
// httpClient: HTTP client for API requests
// baseURL: Base URL for the LLM API
// retry: Retry policy for transient failures
type Client struct {
	config     *Config
	httpClient *http.Client
	baseURL    string
	retry      RetryConfig
}

// NewClient creates a new LLM client with the given configuration
//
// config: Configuration for the LLM API
//
// Returns a new Client instance or an error if configuration is invalid
// Example:
//
//	client, err := llm.NewClient(&cfg.LLM)
//	if err != nil {
//		log.Fatal(err)
//	}
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	client := &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		retry: DefaultRetryConfig(),
	}

	return client, nil
}

// ChatCompletion creates a chat completion request to the configured LLM API
//
// ctx: Context for the request
// messages: Array of messages in the conversation
// options: Optional configuration for the request
//
// # Returns the chat completion response or an error
//
// Example:
//
//	messages := []llm.Message{
//		llm.TextMessage("user", "Hello, how are you?"),
//	}
//	response, err := client.ChatCompletion(ctx, messages, nil)
func (c *Client) ChatCompletion(ctx context.Context, messages []Message, opts *ChatCompletionOptions) (*ChatResponse, error) {
	if opts == nil {
		opts = NewChatCompletionOptions()
	}

	// Add system prompt if provided
	if opts.SystemPrompt != "" {
		messages = append([]Message{TextMessage("system", opts.SystemPrompt)}, messages...)
	}

	request := ChatRequest{
		Model:       c.config.Model,
		Messages:    messages,
		MaxTokens:   c.getMaxTokens(opts),
		Temperature: c.getTemperature(opts),
		Stream:      opts.Stream,
	}

	response, err := c.makeRequest(ctx, "POST", "/chat/completions", request)
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	return response, nil
}

// SimpleChat provides a simple interface for chat completion
//
// ctx: Context for the request
// prompt: The user prompt
// systemPrompt: Optional system prompt for context
//
// # Returns the assistant's response content or an error
//
// Example:
//
//	response, err := client.SimpleChat(ctx, "Translate: Bonjour", "You are a translator.")
func (c *Client) SimpleChat(ctx context.Context, prompt string, systemPrompt string) (string, error) {
	messages := []Message{TextMessage("user", prompt)}

	opts := NewChatCompletionOptions()
	if systemPrompt != "" {
		opts = opts.WithSystemPrompt(systemPrompt)
	}

	response, err := c.ChatCompletion(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	return response.FirstContent()
}

// VisionChat sends a prompt together with an inline image and returns the
// assistant's text response
//
// ctx: Context for the request
// prompt: The instruction describing what to do with the image
// image: Raw image bytes, embedded as a base64 data URL
// mimeType: MIME type of the image (defaults to image/jpeg when empty)
// systemPrompt: Optional system prompt for context
//
// # Returns the assistant's response content or an error
//
// Example:
//
//	text, err := client.VisionChat(ctx, "Read the text in this speech bubble.", crop, "image/png", "")
func (c *Client) VisionChat(ctx context.Context, prompt string, image []byte, mimeType string, systemPrompt string) (string, error) {
	messages := []Message{VisionMessage("user", prompt, image, mimeType)}

	opts := NewChatCompletionOptions()
	if systemPrompt != "" {
		opts = opts.WithSystemPrompt(systemPrompt)
	}

	response, err := c.ChatCompletion(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	return response.FirstContent()
}

// makeRequest makes a raw HTTP request to the configured LLM API
// Transient failures (rate limits, 5xx, network errors) are retried with
// exponential backoff; the request body is rebuilt for every attempt
func (c *Client) makeRequest(ctx context.Context, method, path string, payload interface{}) (*ChatResponse, error) {
	url := c.baseURL + path

	var jsonData []byte
	if payload != nil {
		var err error
		jsonData, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	makeReq := func() (*http.Request, error) {
		var body io.Reader
		if jsonData != nil {
			body = bytes.NewReader(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		for key, value := range c.config.GetHeaders() {
			req.Header.Set(key, value)
		}
		return req, nil
	}

	resp, err := doWithRetry(ctx, c.httpClient, c.retry, makeReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var chatResponse ChatResponse
	if err := json.Unmarshal(responseBody, &chatResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for API errors
	if chatResponse.Error != nil && chatResponse.Error.Message != "" {
		return &chatResponse, chatResponse.Error
	}

	// Check HTTP status
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &chatResponse, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(responseBody))
	}

	return &chatResponse, nil
}

// getMaxTokens returns the max tokens to use for the request
func (c *Client) getMaxTokens(opts *ChatCompletionOptions) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return c.config.MaxTokens
}

// getTemperature returns the temperature to use for the request
func (c *Client) getTemperature(opts *ChatCompletionOptions) float64 {
	if opts.Temperature >= 0 && opts.Temperature <= 2 {
		return opts.Temperature
	}
	return c.config.Temperature
}
