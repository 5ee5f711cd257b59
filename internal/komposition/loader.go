package komposition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a komposition document from disk, picking the decoder by file
// extension: .json (canonical), .yaml/.yml, or .hcl. The returned document
// has not yet passed structural validation.
func Load(path string) (*Komposition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read komposition: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ParseJSON(data)
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".hcl":
		return ParseHCL(path, data)
	default:
		return nil, fmt.Errorf("unsupported komposition format %q (want .json, .yaml, or .hcl)", filepath.Ext(path))
	}
}

// ParseYAML decodes the YAML form of the document. The YAML shape mirrors
// the canonical JSON shape key for key.
func ParseYAML(data []byte) (*Komposition, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Violations: []Violation{{
			Path:    "$",
			Message: fmt.Sprintf("malformed YAML: %v", err),
		}}}
	}

	// Re-encode through JSON so both front-ends share one decode path.
	body, err := json.Marshal(raw)
	if err != nil {
		return nil, &ValidationError{Violations: []Violation{{
			Path:    "$",
			Message: fmt.Sprintf("YAML document is not JSON-representable: %v", err),
		}}}
	}
	return ParseJSON(body)
}
