package dsx

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy controls which engine-internal (Owner "APT") subrecords survive
// parsing and which fields are dropped at each structural level. The defaults
// mirror the hand-tuned tables of the DataStage exports this tool was built
// against; they are policy, not structure, and can be overridden from a YAML
// file.
type Policy struct {
	// PreserveAPT lists APT-owned subrecord names that are kept even though
	// their owner marks them engine-internal. TrxGenCode and TrxClassName
	// carry the transformer code that the lowering must preserve verbatim.
	PreserveAPT []string `yaml:"preserveAPT"`

	// OmitRoot, OmitView, and OmitStage list field names dropped from
	// job-level, container-level, and stage-level records respectively.
	OmitRoot  []string `yaml:"omitRoot"`
	OmitView  []string `yaml:"omitView"`
	OmitStage []string `yaml:"omitStage"`
}

// DefaultPolicy returns the built-in filter tables.
func DefaultPolicy() *Policy {
	return &Policy{
		PreserveAPT: []string{
			"TrxGenCode",
			"TrxClassName",
			"JobParameterNames",
		},
		OmitRoot: []string{
			"NextID",
			"Uploadable",
			"MetaBag",
			"NLSLocale",
		},
		OmitView: []string{
			"SnapToGrid",
			"GridLines",
			"ZoomValue",
			"StageXPos",
			"StageYPos",
			"StageXSize",
			"StageYSize",
		},
		OmitStage: []string{
			"NextRecordID",
			"StageXPos",
			"StageYPos",
			"StageXSize",
			"StageYSize",
		},
	}
}

// LoadPolicy reads a policy override file. Missing keys fall back to the
// built-in tables.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file %q: %w", path, err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parsing policy file %q: %w", path, err)
	}

	return p, nil
}

// PreservesAPT reports whether an APT-owned subrecord with the given Name
// survives filtering.
func (p *Policy) PreservesAPT(name string) bool {
	for _, keep := range p.PreserveAPT {
		if keep == name {
			return true
		}
	}

	return false
}

// omitted reports whether a field is on the given omit list.
func omitted(list []string, field string) bool {
	for _, f := range list {
		if f == field {
			return true
		}
	}

	return false
}
