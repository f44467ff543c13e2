package main

import (
	"context"
	"fmt"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	actorsv1 "github.com/kination/actorflow/api/v1"
	"github.com/kination/actorflow/examples/actors"
	"github.com/kination/actorflow/internal/config"
	"github.com/kination/actorflow/internal/connector"
	"github.com/kination/actorflow/internal/store"
	"github.com/kination/actorflow/internal/store/memory"
	"github.com/kination/actorflow/internal/store/sqlite"
	"github.com/kination/actorflow/internal/textgen"
	"github.com/kination/actorflow/pkg/sdk"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(actorsv1.AddToScheme(scheme))
}

// loadConfig reads --config and applies flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if namespace != "" {
		cfg.Namespace = namespace
	}
	return cfg, nil
}

// newRegistry registers the demo workflows with models served by the configured backend
func newRegistry(cfg *config.Config) (*sdk.Registry, error) {
	connectors := connector.NewRegistry()
	connectors.Register(connector.NewOpenAI(connector.ConnectorConfig{
		BaseURL:     cfg.Model.BaseURL,
		APIKey:      cfg.Model.APIKey(),
		VerifyModel: cfg.Model.Verify,
	}, nil))

	conn, err := connectors.Get(cfg.Model.Backend)
	if err != nil {
		return nil, err
	}

	reg := sdk.NewRegistry()
	loader := func(ctx context.Context, model string) (textgen.Pipeline, error) {
		return conn.Load(ctx, model)
	}
	if err := actors.Register(reg, loader); err != nil {
		return nil, err
	}
	return reg, nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	sc := cfg.StoreConfig()
	switch sc.Type {
	case store.StoreTypeMemory:
		return memory.New(), nil
	case store.StoreTypeSQLite:
		return sqlite.New(sc)
	default:
		return nil, fmt.Errorf("unknown store type %q", sc.Type)
	}
}

func newKubeClient() (client.Client, error) {
	restCfg, err := ctrl.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig: %w", err)
	}
	return client.New(restCfg, client.Options{Scheme: scheme})
}
