// Package connector provides model connectors: backends that load a named model
// into a text-generation pipeline.
package connector

import (
	"context"

	"github.com/kination/actorflow/internal/textgen"
)

// ModelConnector loads models from one inference backend
type ModelConnector interface {
	// Type returns the backend this connector handles (e.g., "openai")
	Type() string

	// Load binds the named model to a pipeline. Loading may be expensive;
	// callers inside actors should memoize the result with an sdk.ActorCache.
	Load(ctx context.Context, model string) (textgen.Pipeline, error)
}

// ConnectorConfig holds common configuration for connectors
type ConnectorConfig struct {
	BaseURL string
	APIKey  string
	// VerifyModel asks the backend whether the model exists before returning a pipeline
	VerifyModel bool
}
