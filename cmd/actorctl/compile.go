package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kination/actorflow/internal/compiler"
)

var outputDir string

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Render actor environments to ActorEnvironment manifests",
	Long: `Render every registered actor environment into an ActorEnvironment
manifest, one <name>.yaml per environment. Applying them ahead of time lets
the controller warm replicas before the first remote run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		reg, err := newRegistry(cfg)
		if err != nil {
			return err
		}

		fmt.Println("🚀 Compiling actor environments...")
		fmt.Printf("   - Namespace: %s\n", cfg.Namespace)
		fmt.Printf("   - Output: %s\n", outputDir)

		paths, err := compiler.CompileEnvironments(reg, cfg.Namespace, outputDir)
		if err != nil {
			return fmt.Errorf("compilation failed: %w", err)
		}

		fmt.Printf("✅ %d actor environments compiled successfully!\n", len(paths))
		return nil
	},
}

func init() {
	compileCmd.Flags().StringVarP(&outputDir, "out", "o", "dist", "Directory to save generated YAML files")
}
