package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/kination/actorflow/internal/actorserver"
)

var (
	serveEnv  string
	serveAddr string
)

var actorCmd = &cobra.Command{
	Use:   "actor",
	Short: "Commands run inside actor replicas",
}

var actorServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tasks of one actor environment over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveEnv == "" {
			serveEnv = os.Getenv("ACTORFLOW_ENV")
		}
		if serveEnv == "" {
			return fmt.Errorf("--env is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := newRegistry(cfg)
		if err != nil {
			return err
		}
		srv, err := actorserver.New(reg, serveEnv)
		if err != nil {
			return err
		}

		fmt.Printf("🎭 Serving actor environment %s on %s\n", serveEnv, serveAddr)
		return srv.ListenAndServe(ctrl.SetupSignalHandler(), serveAddr)
	},
}

func init() {
	actorServeCmd.Flags().StringVar(&serveEnv, "env", "", "Actor environment to serve (defaults to $ACTORFLOW_ENV)")
	actorServeCmd.Flags().StringVar(&serveAddr, "addr", fmt.Sprintf(":%d", actorserver.DefaultPort), "Listen address")
	actorCmd.AddCommand(actorServeCmd)
}
