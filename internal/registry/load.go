package registry

import (
	_ "embed"
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/routeworks/agentroute/pkg/models"
)

//go:embed agents.yaml
var defaultAgentsYAML []byte

// registryFile is the on-disk registry format.
type registryFile struct {
	Agents []models.AgentDescriptor `yaml:"agents"`
}

// Parse builds a registry from YAML bytes.
func Parse(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing registry yaml: %w", err)
	}
	if len(file.Agents) == 0 {
		return nil, fmt.Errorf("registry yaml contains no agents")
	}
	return New(file.Agents)
}

// Load reads a registry from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading registry from %s: %w", path, err)
	}
	return reg, nil
}

// Default returns the built-in registry. It panics only if the embedded
// table is corrupt, which is a build defect.
func Default() *Registry {
	reg, err := Parse(defaultAgentsYAML)
	if err != nil {
		panic(fmt.Sprintf("registry: embedded agents.yaml invalid: %v", err))
	}
	return reg
}

// DefaultYAML returns the embedded registry table, used by init to write a
// starter registry file.
func DefaultYAML() []byte {
	out := make([]byte, len(defaultAgentsYAML))
	copy(out, defaultAgentsYAML)
	return out
}
