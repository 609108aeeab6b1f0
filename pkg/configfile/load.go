package configfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrParse is returned when a configuration file is not valid JSON.
	ErrParse = errors.New("failed to parse configuration file")

	// ErrValidation is returned when a configuration file does not satisfy its schema.
	ErrValidation = errors.New("configuration file failed schema validation")
)

// ValidationError carries the detailed schema validator output.
type ValidationError struct {
	Path   string
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s does not satisfy schema %s: %v", e.Path, e.Schema, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Err}
}

// Document is a loaded application configuration.
type Document map[string]any

// LoadJSON reads the JSON document at path. When schemaPath is set the
// document is validated against that JSON schema.
func LoadJSON(path, schemaPath string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %s: %w", path, err)
	}

	// UseNumber keeps integers exact for schema validation
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrParse, path, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w %s: unexpected data after top-level value", ErrParse, path)
	}
	doc, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w %s: top-level value must be an object", ErrParse, path)
	}

	if schemaPath != "" {
		schema, err := compileSchema(schemaPath)
		if err != nil {
			return nil, err
		}
		if err := schema.Validate(raw); err != nil {
			return nil, &ValidationError{Path: path, Schema: schemaPath, Err: err}
		}
	}

	normalizeNumbers(doc)
	return Document(doc), nil
}

func compileSchema(schemaPath string) (*jsonschema.Schema, error) {
	abs, err := filepath.Abs(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema path %s: %w", schemaPath, err)
	}
	schema, err := jsonschema.Compile(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %s: %w", schemaPath, err)
	}
	return schema, nil
}

// Decode copies the document into target, typically a pointer to a struct
// with mapstructure tags.
func (d Document) Decode(target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(map[string]any(d))
}

// normalizeNumbers replaces json.Number values with int64 for integral numbers
// and float64 otherwise.
func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}
