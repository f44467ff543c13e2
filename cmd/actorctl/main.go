package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
)

var version = "v0.1.0"

var (
	configPath string
	namespace  string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "actorctl",
	Short: "actorflow - run workflows whose tasks execute on warm actor replicas",
	Long: `actorflow runs workflows made of chained tasks. Actor tasks execute on
named actor environments whose replicas stay warm between calls, so state
such as a loaded model is reused until the environment has been idle for
its TTL.

Workflows run in-process by default. With --remote, actor tasks are sent
to replicas that the actorflow controller provisions in Kubernetes.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ctrl.SetLogger(zap.New(zap.UseDevMode(verbose)))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of actorctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("actorflow actorctl %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "Kubernetes namespace of actor environments (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(actorCmd)
	rootCmd.AddCommand(controllerCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
		os.Exit(1)
	}
}
