// Package compiler renders registered actor environments into ActorEnvironment
// manifests that can be applied ahead of the first remote run.
package compiler

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"github.com/kination/actorflow/pkg/sdk"
)

// Render returns the YAML manifest of env in namespace
func Render(env *sdk.ActorEnvironment, namespace string) ([]byte, error) {
	out, err := yaml.Marshal(env.Manifest(namespace))
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", env.Name(), err)
	}
	return out, nil
}

// RenderAll concatenates the manifests of every registered environment into one multi-document stream
func RenderAll(reg *sdk.Registry, namespace string) ([]byte, error) {
	var buf bytes.Buffer
	for i, env := range reg.Environments() {
		doc, err := Render(env, namespace)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteString("---\n")
		}
		buf.Write(doc)
	}
	return buf.Bytes(), nil
}

// CompileEnvironments writes one <env>.yaml per registered environment into outputDir
// and returns the written paths.
func CompileEnvironments(reg *sdk.Registry, namespace, outputDir string) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, env := range reg.Environments() {
		doc, err := Render(env, namespace)
		if err != nil {
			return nil, err
		}

		fileName := env.Name() + ".yaml"
		savePath := filepath.Join(outputDir, fileName)
		if err := os.WriteFile(savePath, doc, 0644); err != nil {
			return nil, fmt.Errorf("write error: %w", err)
		}

		fmt.Printf("   ✨ Compiled: %s -> %s\n", env.Name(), fileName)
		written = append(written, savePath)
	}
	return written, nil
}
