package chain

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Destination is a chain that cross-chain sends may target.
type Destination struct {
	Name        string `yaml:"-"`
	ChainID     int64  `yaml:"chain_id"`
	Token       string `yaml:"token"`
	Description string `yaml:"description"`
}

// Definitions models the structure of chains.yaml.
type Definitions struct {
	Destinations map[string]Destination `yaml:"destinations"`
}

// Registry resolves destination names case-insensitively.
type Registry struct {
	byName map[string]Destination
}

// DefaultDestinations is used when no chains file is configured.
func DefaultDestinations() *Registry {
	return newRegistry(map[string]Destination{
		"ethereum":  {ChainID: 1, Token: "USDC", Description: "Ethereum mainnet"},
		"avalanche": {ChainID: 43114, Token: "USDC", Description: "Avalanche C-Chain"},
		"polygon":   {ChainID: 137, Token: "USDC", Description: "Polygon PoS"},
	})
}

// LoadDestinations parses the YAML file at path. An empty path returns the
// defaults.
func LoadDestinations(path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultDestinations(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chains file: %w", err)
	}
	var defs Definitions
	if err := yaml.Unmarshal(content, &defs); err != nil {
		return nil, fmt.Errorf("parse chains file: %w", err)
	}
	if len(defs.Destinations) == 0 {
		return nil, fmt.Errorf("chains file %s declares no destinations", path)
	}
	for name, d := range defs.Destinations {
		if d.ChainID <= 0 {
			return nil, fmt.Errorf("destination %s has no chain_id", name)
		}
	}
	return newRegistry(defs.Destinations), nil
}

func newRegistry(in map[string]Destination) *Registry {
	r := &Registry{byName: make(map[string]Destination, len(in))}
	for name, d := range in {
		key := strings.ToLower(strings.TrimSpace(name))
		d.Name = key
		r.byName[key] = d
	}
	return r
}

// Lookup returns the destination called name.
func (r *Registry) Lookup(name string) (Destination, bool) {
	if r == nil {
		return Destination{}, false
	}
	d, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

// Names lists the configured destinations in order.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
