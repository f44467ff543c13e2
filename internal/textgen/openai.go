package textgen

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient captures the subset of the go-openai client used by the pipeline.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// OpenAIPipeline implements Pipeline on the Chat Completions API
type OpenAIPipeline struct {
	chat  ChatClient
	model string
}

// NewOpenAIPipeline binds client to model
func NewOpenAIPipeline(client ChatClient, model string) (*OpenAIPipeline, error) {
	if client == nil {
		return nil, errors.New("openai client is required")
	}
	if model == "" {
		return nil, errors.New("model is required")
	}
	return &OpenAIPipeline{chat: client, model: model}, nil
}

func (p *OpenAIPipeline) Model() string { return p.model }

// Generate implements Pipeline
func (p *OpenAIPipeline) Generate(ctx context.Context, prompt string, opts GenerateOptions) ([]Prediction, error) {
	if prompt == "" {
		return nil, errors.New("prompt is required")
	}
	n := opts.BatchSize
	if n < 1 {
		n = 1
	}
	request := openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   opts.MaxNewTokens,
		Temperature: opts.Temperature,
		N:           n,
	}

	response, err := p.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, ErrNoPrediction
	}

	predictions := make([]Prediction, 0, len(response.Choices))
	for _, choice := range response.Choices {
		text := choice.Message.Content
		if opts.ReturnFullText {
			text = prompt + text
		}
		predictions = append(predictions, Prediction{GeneratedText: text})
	}
	return predictions, nil
}
