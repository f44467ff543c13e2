// Package textgen provides the text-generation pipeline used by actor tasks.
// A Pipeline turns a prompt into one or more predictions; the OpenAI-compatible
// implementation targets any server that speaks the Chat Completions API
// (vLLM, TGI, Ollama, OpenAI).
package textgen

import (
	"context"
	"errors"
)

// ErrNoPrediction is returned when the backend produced no output
var ErrNoPrediction = errors.New("no prediction returned")

// Prediction is one generated sequence
type Prediction struct {
	GeneratedText string `json:"generated_text"`
}

// GenerateOptions tunes a single generation request
type GenerateOptions struct {
	// BatchSize is the number of sequences generated for the prompt
	BatchSize int
	// ReturnFullText prepends the prompt to every generated text
	ReturnFullText bool
	MaxNewTokens   int
	Temperature    float32
}

// DefaultGenerateOptions mirrors the defaults of a text-generation pipeline
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		BatchSize:      1,
		ReturnFullText: true,
		MaxNewTokens:   256,
	}
}

// Pipeline generates text for a prompt
type Pipeline interface {
	// Model returns the model the pipeline is bound to
	Model() string
	Generate(ctx context.Context, prompt string, opts GenerateOptions) ([]Prediction, error)
}
