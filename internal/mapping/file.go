package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileEntry is one row of a YAML mapping table.
type fileEntry struct {
	Type      string `yaml:"type"`
	Subtype   string `yaml:"subtype"`
	Component string `yaml:"component"`
}

// LoadFile reads a YAML mapping table and returns a repository layering its
// entries over the built-in table. The file format:
//
//	mappings:
//	  - type: Source
//	    subtype: File
//	    component: tFileInputDelimited
func LoadFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping file %q: %w", path, err)
	}

	var doc struct {
		Mappings []fileEntry `yaml:"mappings"`
	}

	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing mapping file %q: %w", path, err)
	}

	overrides := make(map[Key]string, len(doc.Mappings))

	for _, entry := range doc.Mappings {
		if entry.Type == "" || entry.Component == "" {
			return nil, fmt.Errorf("mapping file %q: entries need type and component", path)
		}

		overrides[Key{Type: entry.Type, Subtype: entry.Subtype}] = entry.Component
	}

	return NewStaticWithTable(overrides), nil
}
