package local

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/krisalay/storefront-cache/platform"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/demo.yaml
var demoFixture []byte

// Fixture is the seed data of the emulator.
type Fixture struct {
	Store   platform.Store     `yaml:"store"`
	Locale  string             `yaml:"locale"`
	Coupons map[string]float64 `yaml:"coupons"` // code → percent off
	Reviews []platform.Review  `yaml:"reviews"`
}

// DemoFixture returns the built-in demo catalog.
func DemoFixture() (*Fixture, error) {
	return ParseFixture(demoFixture)
}

// LoadFixture reads a YAML fixture from disk.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) validate() error {
	if strings.TrimSpace(f.Store.ID) == "" {
		return fmt.Errorf("fixture: store.id is required")
	}
	if f.Store.Currency == "" {
		f.Store.Currency = "USD"
	}
	seen := make(map[string]bool)
	for _, p := range f.Store.Products {
		if p.ID == "" {
			return fmt.Errorf("fixture: product without id")
		}
		for _, key := range []string{p.ID, p.Slug} {
			if key == "" {
				continue
			}
			if seen[key] {
				return fmt.Errorf("fixture: duplicate product id or slug %q", key)
			}
			seen[key] = true
		}
	}
	for _, r := range f.Reviews {
		if !seen[r.ProductID] {
			return fmt.Errorf("fixture: review %q references unknown product %q", r.ID, r.ProductID)
		}
	}
	return nil
}
