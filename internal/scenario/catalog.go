package scenario

import (
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/scenarios.yaml
var builtinYAML []byte

// Catalog is an ordered, id-indexed registry of scenarios.
type Catalog struct {
	scenarios []*Scenario
	index     map[string]*Scenario
}

type catalogFile struct {
	Scenarios []*Scenario `yaml:"scenarios"`
}

// Builtin returns the catalog compiled into the binary.
// It panics if the embedded data is malformed.
func Builtin() *Catalog {
	c, err := Parse(builtinYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin scenario catalog: %v", err))
	}
	return c
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalog(f.Scenarios)
}

// Read decodes a YAML catalog from r.
func Read(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// NewCatalog validates the scenarios and indexes them by id.
func NewCatalog(list []*Scenario) (*Catalog, error) {
	c := &Catalog{index: make(map[string]*Scenario, len(list))}
	for _, s := range list {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.index[s.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario %s", s.ID)
		}
		c.index[s.ID] = s
		c.scenarios = append(c.scenarios, s)
	}
	return c, nil
}

// All returns every scenario in authored order.
func (c *Catalog) All() []*Scenario {
	out := make([]*Scenario, len(c.scenarios))
	copy(out, c.scenarios)
	return out
}

// Len returns the number of scenarios.
func (c *Catalog) Len() int {
	return len(c.scenarios)
}

// Get looks up a scenario by id.
func (c *Catalog) Get(id string) (*Scenario, error) {
	s, ok := c.index[id]
	if !ok {
		return nil, fmt.Errorf("scenario %q: %w", id, ErrNotFound)
	}
	return s, nil
}

// ByStatus returns scenarios whose status matches. An empty status matches all.
func (c *Catalog) ByStatus(status Status) []*Scenario {
	if status == "" {
		return c.All()
	}
	var out []*Scenario
	for _, s := range c.scenarios {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}
