package llamacpp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/menta2k/trackmate/pkg/client"
	"github.com/menta2k/trackmate/pkg/types"
)

// BackendName identifies results produced through this client
const BackendName = "llamacpp"

// Config holds the llama.cpp server endpoint and generation settings
type Config struct {
	URL       string
	Model     string
	Options   types.GenerationOptions
	Transport client.TransportConfig
}

type Client struct {
	baseURL    string
	model      string
	options    types.GenerationOptions
	httpClient *http.Client
}

// OpenAI-compatible message format
type Message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // Can be string or []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

// OpenAI-compatible chat completion request
type ChatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	TopP        float64   `json:"top_p,omitempty"`
	Stop        []string  `json:"stop,omitempty"`
	Stream      bool      `json:"stream"`
}

// OpenAI-compatible chat completion response
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage,omitempty"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the transport built from Config.Transport
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	serverURL := cfg.URL
	if serverURL == "" {
		serverURL = "http://localhost:8080"
	}
	// accept a full endpoint URL as well as a base URL
	serverURL = strings.TrimSuffix(strings.TrimSuffix(serverURL, "/"), "/v1/chat/completions")

	c := &Client{
		baseURL: serverURL,
		model:   cfg.Model,
		options: cfg.Options,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = client.NewHTTPClient(cfg.Transport)
	}
	return c, nil
}

// Name returns the backend name
func (c *Client) Name() string {
	return BackendName
}

// Generate sends the prompt and a JPEG data URL to /v1/chat/completions
func (c *Client) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	content := []ContentPart{
		{
			Type: "text",
			Text: prompt,
		},
	}

	if len(image) > 0 {
		content = append(content, ContentPart{
			Type: "image_url",
			ImageURL: &ImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
			},
		})
	}

	req := ChatCompletionRequest{
		Model: c.model,
		Messages: []Message{
			{
				Role:    "user",
				Content: content,
			},
		},
		Temperature: c.options.Temperature,
		MaxTokens:   c.options.NumPredict,
		TopP:        c.options.TopP,
		Stop:        c.options.Stop,
		Stream:      false,
	}

	respBody, err := c.sendRequest(ctx, http.MethodPost, "/v1/chat/completions", req)
	if err != nil {
		return "", err
	}

	var resp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", client.Malformed(BackendName, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(resp.Choices) == 0 {
		return "", client.Malformed(BackendName, errors.New("no choices in response"))
	}

	// Extract text from the response (handle both string and array formats)
	switch content := resp.Choices[0].Message.Content.(type) {
	case string:
		return content, nil
	case []interface{}:
		var sb strings.Builder
		for _, item := range content {
			if partMap, ok := item.(map[string]interface{}); ok {
				if text, ok := partMap["text"].(string); ok {
					sb.WriteString(text)
				}
			}
		}
		return sb.String(), nil
	case nil:
		return "", nil
	}

	return "", client.Malformed(BackendName, errors.New("no text content in response"))
}

// Ping calls the llama.cpp health endpoint
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.sendRequest(ctx, http.MethodGet, "/health", nil)
	return err
}

func (c *Client) sendRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, client.Unreachable(BackendName, fmt.Errorf("failed to create request: %w", err))
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, client.Unreachable(BackendName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, client.Unreachable(BackendName, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, client.BadStatus(BackendName, resp.StatusCode, errors.New(strings.TrimSpace(string(respBody))))
	}

	return respBody, nil
}
