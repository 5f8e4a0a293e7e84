// Package codec serializes topology graphs and visualization documents.
//
// JSON and YAML are structural and lossless for both representations. The
// Ansible inventory exporter is a one-way projection of a graph for
// automation tooling.
package codec

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"topolab/internal/domain"
)

// Codec encodes and decodes either topology representation
type Codec interface {
	Format() string
	ContentType() string
	Encode(w io.Writer, v any) error
	Decode(r io.Reader, v any) error
}

// GraphExporter writes a graph in a format that cannot be read back
type GraphExporter interface {
	Format() string
	ContentType() string
	ExportGraph(w io.Writer, g *domain.TopologyGraph) error
}

var codecs = map[string]Codec{
	"json": NewJSONCodec(),
	"yaml": NewYAMLCodec(),
	"yml":  NewYAMLCodec(),
}

// ForFormat returns the codec registered for a format name
func ForFormat(format string) (Codec, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	return c, nil
}

// ExporterForFormat returns a graph exporter. Every Codec is also usable as
// an exporter.
func ExporterForFormat(format string) (GraphExporter, error) {
	if format == "ansible-inventory" {
		return NewAnsibleExporter(), nil
	}
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format %q (supported: %s)", format, strings.Join(Formats(), ", "))
	}
	return codecExporter{c}, nil
}

// Formats lists every accepted format name
func Formats() []string {
	names := []string{"ansible-inventory"}
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type codecExporter struct{ Codec }

func (e codecExporter) ExportGraph(w io.Writer, g *domain.TopologyGraph) error {
	return e.Encode(w, g)
}

// WriteFile encodes v to path, creating parent directories as needed
func WriteFile(path string, c Codec, v any) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := c.Encode(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
