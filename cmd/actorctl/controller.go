package main

import (
	"fmt"

	"github.com/spf13/cobra"
	corev1 "k8s.io/api/core/v1"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	"github.com/kination/actorflow/internal/config"
	"github.com/kination/actorflow/internal/controller"
	"github.com/kination/actorflow/internal/provision"
)

var (
	metricsAddr    string
	probeAddr      string
	leaderElection bool
)

var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run the ActorEnvironment controller",
	Long: `Run the controller that keeps actor replicas in Kubernetes in line with
their ActorEnvironment resources and scales idle environments to zero.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		setupLog := ctrl.Log.WithName("setup")

		mgr, err := ctrl.NewManager(ctrl.GetConfigOrDie(), ctrl.Options{
			Scheme:                 scheme,
			Metrics:                metricsserver.Options{BindAddress: metricsAddr},
			HealthProbeBindAddress: probeAddr,
			LeaderElection:         leaderElection,
			LeaderElectionID:       "actorflow-controller.actors.actorflow.io",
		})
		if err != nil {
			return fmt.Errorf("unable to start manager: %w", err)
		}

		if cfg.Model.APIKeySecret == "" {
			setupLog.Info("No model API key secret configured, replicas start without credentials",
				"apiKeyEnv", cfg.Model.APIKeyEnv)
		}

		if err := (&controller.ActorEnvironmentReconciler{
			Client:  mgr.GetClient(),
			Scheme:  mgr.GetScheme(),
			Options: replicaOptions(cfg),
		}).SetupWithManager(mgr); err != nil {
			return fmt.Errorf("unable to create controller: %w", err)
		}

		if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
			return err
		}
		if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
			return err
		}

		setupLog.Info("Starting manager", "namespace", cfg.Namespace)
		return mgr.Start(ctrl.SetupSignalHandler())
	},
}

// replicaOptions forwards the model settings and API key secret to actor replicas
func replicaOptions(cfg *config.Config) provision.Options {
	opts := provision.DefaultOptions()
	opts.Port = int32(cfg.Remote.Port)
	opts.Env = cfg.ReplicaEnv()
	if cfg.Model.APIKeySecret != "" && cfg.Model.APIKeyEnv != "" {
		opts.SecretEnv = map[string]corev1.SecretKeySelector{
			cfg.Model.APIKeyEnv: {
				LocalObjectReference: corev1.LocalObjectReference{Name: cfg.Model.APIKeySecret},
				Key:                  cfg.Model.APIKeyEnv,
			},
		}
	}
	return opts
}

func init() {
	controllerCmd.Flags().StringVar(&metricsAddr, "metrics-bind-address", ":8081", "The address the metric endpoint binds to")
	controllerCmd.Flags().StringVar(&probeAddr, "health-probe-bind-address", ":8082", "The address the probe endpoint binds to")
	controllerCmd.Flags().BoolVar(&leaderElection, "leader-elect", false, "Enable leader election for the controller manager")
}
