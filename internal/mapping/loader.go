package mapping

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// LoadFile loads and parses a YAML mapping file from the given path.
func LoadFile(path string) (*MappingFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse parses YAML data into a MappingFile.
func Parse(data []byte) (*MappingFile, error) {
	var mf MappingFile

	err := yaml.Unmarshal(data, &mf)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping YAML: %w", err)
	}

	applyDefaults(&mf)

	return &mf, nil
}

// applyDefaults fills in default values for optional fields.
func applyDefaults(mf *MappingFile) {
	if mf.Version == "" {
		mf.Version = "1"
	}

	for _, nn := range mf.Imports {
		nodeDefaults(nn.Spec)
	}

	for _, entity := range mf.Entities {
		if entity.Type == "" {
			entity.Type = entity.Name
		}

		if entity.Table == "" {
			entity.Table = SnakeCase(entity.Name)
		}

		for _, nn := range entity.Fields {
			nodeDefaults(nn.Spec)
		}
	}
}

func nodeDefaults(spec *NodeSpec) {
	if spec == nil {
		return
	}

	if spec.Kind == "" {
		spec.Kind = KindField
	}

	nodeDefaults(spec.Entry)
	nodeDefaults(spec.Inner)

	for _, list := range []NamedNodes{spec.Entries, spec.Choices, spec.Fields} {
		for _, nn := range list {
			nodeDefaults(nn.Spec)
		}
	}

	for _, call := range []*CallSpec{spec.Factory, spec.Serializer} {
		if call == nil {
			continue
		}

		for _, arg := range call.Args {
			nodeDefaults(arg)
		}
	}
}

// SnakeCase converts an entity name like "OrderLine" to "order_line".
func SnakeCase(name string) string {
	var sb strings.Builder

	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsUpper(runes[i-1]) && unicode.IsLower(runes[i+1])

			if prevLower || nextLower {
				sb.WriteByte('_')
			}

			sb.WriteRune(unicode.ToLower(r))

			continue
		}

		sb.WriteRune(r)
	}

	return sb.String()
}

// Marshal serializes a MappingFile to YAML.
func Marshal(mf *MappingFile) ([]byte, error) {
	return yaml.Marshal(mf)
}

// WriteFile writes a MappingFile to the given path.
func WriteFile(mf *MappingFile, path string) error {
	data, err := Marshal(mf)
	if err != nil {
		return fmt.Errorf("failed to marshal mapping: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write mapping file %s: %w", path, err)
	}

	return nil
}
