package ai

import "context"

// Reasoner sends a rendered prompt to a hosted language model and returns the
// raw text of its answer.
type Reasoner interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Provider names accepted in configuration.
const (
	ProviderGemini  = "gemini"
	ProviderMistral = "mistral"
)
