// Package encoding decodes task files and encodes benchmark reports
// in JSON, YAML or TOML.
package encoding

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	jsonenc "github.com/effective-security/mcpbench/encoding/json"
	tomlenc "github.com/effective-security/mcpbench/encoding/toml"
	yamlenc "github.com/effective-security/mcpbench/encoding/yaml"
)

type Encoder interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type Validator interface {
	Validate(any) error
}

type Format = string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnsupportedFormat is returned for unknown formats.
var ErrUnsupportedFormat = errors.New("unsupported format")

// PredefinedEncoder returns the encoder of the format.
func PredefinedEncoder(format Format) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		return jsonenc.NewEncoder(), nil
	case FormatYAML, "yml":
		return yamlenc.NewEncoder(), nil
	case FormatTOML:
		return tomlenc.NewEncoder(), nil
	default:
		return nil, errors.Wrapf(ErrUnsupportedFormat, "%q", format)
	}
}

// FormatFromPath returns the format by the file extension,
// JSON by default.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

var (
	_ Encoder   = (*jsonenc.Encoder)(nil)
	_ Encoder   = (*tomlenc.Encoder)(nil)
	_ Encoder   = (*yamlenc.Encoder)(nil)
	_ Validator = (*jsonenc.Encoder)(nil)
	_ Validator = (*tomlenc.Encoder)(nil)
	_ Validator = (*yamlenc.Encoder)(nil)
)
