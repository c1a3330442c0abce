package httpapi

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed translate_request.schema.json
var translateRequestSchemaJSON string

//go:embed mode_request.schema.json
var modeRequestSchemaJSON string

type schemaSet struct {
	once      sync.Once
	translate *jsonschema.Schema
	mode      *jsonschema.Schema
	err       error
}

var schemas schemaSet

func (s *schemaSet) load() error {
	s.once.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020

		resources := map[string]string{
			"translate_request.schema.json": translateRequestSchemaJSON,
			"mode_request.schema.json":      modeRequestSchemaJSON,
		}
		for name, body := range resources {
			if err := compiler.AddResource(name, strings.NewReader(body)); err != nil {
				s.err = fmt.Errorf("add schema resource %s: %w", name, err)
				return
			}
		}

		if s.translate, s.err = compiler.Compile("translate_request.schema.json"); s.err != nil {
			s.err = fmt.Errorf("compile translate schema: %w", s.err)
			return
		}
		if s.mode, s.err = compiler.Compile("mode_request.schema.json"); s.err != nil {
			s.err = fmt.Errorf("compile mode schema: %w", s.err)
		}
	})
	return s.err
}

// decodeValidated checks raw against schema and decodes it into out.
func decodeValidated(raw []byte, schema func() *jsonschema.Schema, out any) error {
	if err := schemas.load(); err != nil {
		return err
	}

	value, err := decodeStrictJSON(raw)
	if err != nil {
		return fmt.Errorf("decode payload JSON: %w", err)
	}
	if err := schema().Validate(value); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	normalized, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("normalize payload JSON: %w", err)
	}
	return json.Unmarshal(normalized, out)
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("payload is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("payload contains trailing content")
	}
	return value, nil
}

func translateSchema() *jsonschema.Schema { return schemas.translate }
func modeSchema() *jsonschema.Schema      { return schemas.mode }
