package varstore

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Declaration describes one variable to declare at store startup.
type Declaration struct {
	// Name is the full variable name, e.g. /CONSUMPTION/L1/V.
	Name string `yaml:"name"`

	// Kind is the declared type: float, u16, i16, or u64.
	Kind Kind `yaml:"type"`

	// Initial is the optional starting value as a decimal token.
	// Empty means the zero of the kind.
	Initial string `yaml:"initial,omitempty"`
}

// declFile is the YAML document shape for a declaration file.
type declFile struct {
	Variables []Declaration `yaml:"variables"`
}

// LoadDeclarations reads and parses a YAML declaration file.
func LoadDeclarations(path string) ([]Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declarations file: %w", err)
	}
	return ParseDeclarations(data)
}

// ParseDeclarations parses YAML declaration data and validates each entry.
//
// Example document:
//
//	variables:
//	  - name: /CONSUMPTION/L1/V
//	    type: float
//	  - name: /CONSUMPTION/L1/ENERGY_IMP
//	    type: u64
//	    initial: "100227460449"
func ParseDeclarations(data []byte) ([]Declaration, error) {
	var f declFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seen := make(map[string]bool, len(f.Variables))
	for i, d := range f.Variables {
		if d.Name == "" {
			return nil, fmt.Errorf("variables[%d]: name is required", i)
		}
		if seen[d.Name] {
			return nil, fmt.Errorf("variables[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true

		if !d.Kind.Valid() {
			return nil, fmt.Errorf("variables[%d] (%s): unknown type %q (use float, u16, i16, or u64)",
				i, d.Name, d.Kind)
		}
		if d.Initial != "" {
			if _, err := ParseValue(d.Kind, json.Number(d.Initial)); err != nil {
				return nil, fmt.Errorf("variables[%d] (%s): initial: %v", i, d.Name, err)
			}
		}
	}

	return f.Variables, nil
}

// DeclareAll declares every entry in a registry.
func DeclareAll(reg *Registry, decls []Declaration) error {
	for _, d := range decls {
		initial := Value{}
		if d.Initial != "" {
			v, err := ParseValue(d.Kind, json.Number(d.Initial))
			if err != nil {
				return fmt.Errorf("variable %q: initial: %v", d.Name, err)
			}
			initial = v
		}
		if _, err := reg.Declare(d.Name, d.Kind, initial); err != nil {
			return err
		}
	}
	return nil
}

// ConsumptionDeclarations returns the standard consumption variable set the
// bridge publishes: per-line voltage, real power, reactive power, and
// imported energy, plus the total channel's power and energy (the total has
// no voltage variable).
//
// The prefix is the leading path segment, normally /CONSUMPTION.
func ConsumptionDeclarations(prefix string) []Declaration {
	return []Declaration{
		{Name: prefix + "/L1/V", Kind: KindFloat},
		{Name: prefix + "/L1/P", Kind: KindUint16},
		{Name: prefix + "/L1/Q", Kind: KindInt16},
		{Name: prefix + "/L1/ENERGY_IMP", Kind: KindUint64},
		{Name: prefix + "/L2/V", Kind: KindFloat},
		{Name: prefix + "/L2/P", Kind: KindUint16},
		{Name: prefix + "/L2/Q", Kind: KindInt16},
		{Name: prefix + "/L2/ENERGY_IMP", Kind: KindUint64},
		{Name: prefix + "/TOTAL/P", Kind: KindUint16},
		{Name: prefix + "/TOTAL/Q", Kind: KindInt16},
		{Name: prefix + "/TOTAL/ENERGY_IMP", Kind: KindUint64},
	}
}
