package connector

import (
	"context"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kination/actorflow/internal/textgen"
)

var log = ctrl.Log.WithName("connector")

// TypeOpenAI is the connector type for OpenAI-compatible servers
const TypeOpenAI = "openai"

// OpenAIConnector loads models served behind an OpenAI-compatible API
type OpenAIConnector struct {
	config     ConnectorConfig
	httpClient *http.Client
}

// NewOpenAI creates a connector. httpClient may be nil.
func NewOpenAI(cfg ConnectorConfig, httpClient *http.Client) *OpenAIConnector {
	return &OpenAIConnector{config: cfg, httpClient: httpClient}
}

func (c *OpenAIConnector) Type() string { return TypeOpenAI }

// Load implements ModelConnector
func (c *OpenAIConnector) Load(ctx context.Context, model string) (textgen.Pipeline, error) {
	clientCfg := openai.DefaultConfig(c.config.APIKey)
	if c.config.BaseURL != "" {
		clientCfg.BaseURL = c.config.BaseURL
	}
	if c.httpClient != nil {
		clientCfg.HTTPClient = c.httpClient
	}
	client := openai.NewClientWithConfig(clientCfg)

	if c.config.VerifyModel {
		if _, err := client.GetModel(ctx, model); err != nil {
			return nil, fmt.Errorf("model %s not available at %s: %w", model, clientCfg.BaseURL, err)
		}
	}

	log.Info("Loaded model", "model", model, "baseURL", clientCfg.BaseURL)
	return textgen.NewOpenAIPipeline(client, model)
}
