/*
Copyright 2025 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package topology

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Format is the encoding of a topology description.
type Format string

const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from a file extension: .yaml, .yml and .json are structured documents, anything
// else is the legacy text format.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Load reads and parses the description at path. The topology is named after the file unless the document names
// it. Load does not validate.
func Load(path string) (*Topology, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topology: %w", err)
	}
	t, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if t.Name == "" {
		t.Name = filepath.Base(path)
	}
	return t, nil
}

// Parse decodes data in the given format. Structured documents are decoded strictly: unknown fields are errors.
func Parse(data []byte, format Format) (*Topology, error) {
	switch format {
	case FormatText:
		return ParseText(bytes.NewReader(data))
	case FormatYAML, FormatJSON:
		t := &Topology{}
		if err := yaml.UnmarshalStrict(data, t); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported topology format %q", format)
	}
}

// Marshal encodes t as a YAML document.
func Marshal(t *Topology) ([]byte, error) {
	return yaml.Marshal(t)
}
