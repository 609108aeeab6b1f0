package logging

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument is returned for logging documents that cannot be parsed or decoded.
var ErrInvalidDocument = errors.New("invalid logging configuration document")

// Document is a logging configuration document in its generic form, as loaded
// from YAML. It is mutated in place by ForceLevel and SetFileHandlerFilename
// before being decoded and activated.
type Document map[string]any

// LoadDocument reads and parses the logging configuration document at path.
func LoadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logging config %s: %w", path, err)
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ParseDocument parses a YAML logging configuration document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is empty", ErrInvalidDocument)
	}
	return doc, nil
}

// section returns the named top-level mapping, or nil if absent or not a mapping.
func (d Document) section(name string) map[string]any {
	s, _ := d[name].(map[string]any)
	return s
}

// entries returns the mappings held by a section such as "handlers" or "loggers".
func (d Document) entries(name string) []map[string]any {
	var out []map[string]any
	for _, v := range d.section(name) {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// ForceLevel overwrites the level of every handler, every logger and the root logger.
func (d Document) ForceLevel(level string) {
	for _, h := range d.entries("handlers") {
		h["level"] = level
	}
	for _, l := range d.entries("loggers") {
		l["level"] = level
	}
	if root := d.section("root"); root != nil {
		root["level"] = level
	}
}

// SetFileHandlerFilename overwrites the filename of every file handler.
func (d Document) SetFileHandlerFilename(path string) {
	for _, h := range d.entries("handlers") {
		if class, _ := h["class"].(string); class == ClassFile {
			h["filename"] = path
		}
	}
}

// FileHandlerFilenames returns the filenames of all file handlers, in no particular order.
func (d Document) FileHandlerFilenames() []string {
	var names []string
	for _, h := range d.entries("handlers") {
		if class, _ := h["class"].(string); class == ClassFile {
			if f, ok := h["filename"].(string); ok {
				names = append(names, f)
			}
		}
	}
	return names
}

// Decode converts the document into a validated Config. Unknown keys are rejected.
func (d Document) Decode() (*Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(map[string]any(d)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &cfg, nil
}
