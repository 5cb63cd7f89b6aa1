package trigger

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Extensions lists the trigger-file extensions the codec understands.
var Extensions = []string{".json", ".yaml", ".yml", ".toml"}

// HasKnownExtension reports whether name carries a decodable extension.
func HasKnownExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range Extensions {
		if ext == known {
			return true
		}
	}
	return false
}

// EventName derives the event name from a trigger-file name: the base name
// with its extension stripped.
func EventName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Decode deserializes a trigger-file body into an argument mapping,
// choosing the format from the file extension. An empty body decodes to an
// empty mapping.
func Decode(name string, data []byte) (map[string]any, error) {
	args := make(map[string]any)
	if len(data) == 0 {
		return args, nil
	}

	ext := strings.ToLower(filepath.Ext(name))
	var err error
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &args)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &args)
	case ".toml":
		err = toml.Unmarshal(data, &args)
	default:
		return nil, fmt.Errorf("trigger: unsupported extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("trigger: decode %s: %w", name, err)
	}
	return args, nil
}
