package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/trackmate/pkg/client"
	"github.com/menta2k/trackmate/pkg/types"
)

// BackendName identifies results produced through this client
const BackendName = "ollama"

// Config holds the Ollama endpoint and generation settings
type Config struct {
	URL       string
	Model     string
	Options   types.GenerationOptions
	Transport client.TransportConfig
}

// Client wraps the Ollama API client
type Client struct {
	client  *api.Client
	model   string
	options map[string]any
}

// Option customizes a Client
type Option func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the transport built from Config.Transport
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

// NewClient creates a new Ollama client
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: scheme and host are required", cfg.URL)
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}

	// Create base URL from the provided URL (removing path like /api/generate)
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	o := clientOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = client.NewHTTPClient(cfg.Transport)
	}

	return &Client{
		client:  api.NewClient(baseURL, withStatusRecorder(o.httpClient)),
		model:   cfg.Model,
		options: generationOptions(cfg.Options),
	}, nil
}

// Name returns the backend name
func (c *Client) Name() string {
	return BackendName
}

// Generate sends the prompt and image to /api/generate without streaming
func (c *Client) Generate(ctx context.Context, prompt string, image []byte) (string, error) {
	streamFalse := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Images:  []api.ImageData{api.ImageData(image)},
		Stream:  &streamFalse,
		Options: c.options,
	}

	ctx, status := recordStatus(ctx)

	var (
		responseContent string
		done            bool
	)
	err := c.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		responseContent += resp.Response
		done = done || resp.Done
		return nil
	})
	if err != nil {
		return "", classifyError(err, status.code)
	}
	if !done {
		return "", client.Malformed(BackendName, errors.New("reply carried no completed response"))
	}

	return responseContent, nil
}

// Ping checks that the server answers its heartbeat
func (c *Client) Ping(ctx context.Context) error {
	ctx, status := recordStatus(ctx)
	if err := c.client.Heartbeat(ctx); err != nil {
		return classifyError(err, status.code)
	}
	return nil
}

// classifyError maps an SDK error to a failure kind. The recorded status
// wins because the SDK reports some non-2xx replies as plain errors.
func classifyError(err error, status int) error {
	var statusErr api.StatusError
	switch {
	case status >= http.StatusMultipleChoices:
		return client.BadStatus(BackendName, status, err)
	case errors.As(err, &statusErr):
		return client.BadStatus(BackendName, statusErr.StatusCode, err)
	case client.IsTransportError(err):
		return client.Unreachable(BackendName, err)
	default:
		return client.Malformed(BackendName, err)
	}
}

func generationOptions(o types.GenerationOptions) map[string]any {
	options := map[string]any{
		"temperature":    o.Temperature,
		"num_predict":    o.NumPredict,
		"top_p":          o.TopP,
		"top_k":          o.TopK,
		"repeat_penalty": o.RepeatPenalty,
	}
	if len(o.Stop) > 0 {
		options["stop"] = o.Stop
	}
	return options
}
