package client

import (
	"context"
)

// VisionClient sends one image and a prompt to a vision-language model and
// returns the model's raw text answer. Implementations make a single attempt
// per call and report every failure as *InferenceError.
type VisionClient interface {
	Generate(ctx context.Context, prompt string, image []byte) (string, error)
	Ping(ctx context.Context) error
	Name() string
}
