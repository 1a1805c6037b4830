package contract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Supported contract file formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

type contractDocument struct {
	Contracts []Contract `json:"contracts" yaml:"contracts"`
}

// LoadFile reads contracts from a JSON or YAML file, chosen by extension.
func LoadFile(path string) ([]Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contracts file %s: %w", path, err)
	}
	contracts, err := Decode(data, FormatForPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to decode contracts file %s: %w", path, err)
	}
	return contracts, nil
}

// FormatForPath guesses the format from a file name; unknown extensions are
// treated as JSON.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeReader reads all of r and decodes it with Decode.
func DecodeReader(r io.Reader, format string) ([]Contract, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Decode(data, format)
}

// Decode parses a contract list. Both a bare list and a document with a
// top-level "contracts" key are accepted. Malformed numeric fields never fail
// decoding; malformed documents do.
func Decode(data []byte, format string) ([]Contract, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}

	switch format {
	case FormatYAML:
		return decodeYAML(trimmed)
	case FormatJSON, "":
		return decodeJSON(trimmed)
	default:
		return nil, fmt.Errorf("unsupported contracts format %q", format)
	}
}

func decodeJSON(data []byte) ([]Contract, error) {
	if data[0] == '[' {
		var contracts []Contract
		if err := json.Unmarshal(data, &contracts); err != nil {
			return nil, err
		}
		return contracts, nil
	}
	var doc contractDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Contracts, nil
}

func decodeYAML(data []byte) ([]Contract, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) == 0 {
		return nil, nil
	}
	if node.Content[0].Kind == yaml.SequenceNode {
		var contracts []Contract
		if err := node.Decode(&contracts); err != nil {
			return nil, err
		}
		return contracts, nil
	}
	var doc contractDocument
	if err := node.Decode(&doc); err != nil {
		return nil, err
	}
	return doc.Contracts, nil
}
