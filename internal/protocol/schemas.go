package protocol

import (
	"bytes"
	"embed"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names.
const (
	SchemaRegister = "register.schema.json"
	SchemaAction   = "action.schema.json"
	SchemaIntent   = "intent.schema.json"
)

const schemaBaseURL = "https://agentrpg.ai/schemas/"

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compileSchemas() {
	names := []string{SchemaRegister, SchemaAction, SchemaIntent}
	c := jsonschema.NewCompiler()
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			schemasErr = err
			return
		}
		if err := c.AddResource(schemaBaseURL+name, bytes.NewReader(raw)); err != nil {
			schemasErr = fmt.Errorf("add schema %s: %w", name, err)
			return
		}
	}
	schemas = make(map[string]*jsonschema.Schema, len(names))
	for _, name := range names {
		s, err := c.Compile(schemaBaseURL + name)
		if err != nil {
			schemasErr = fmt.Errorf("compile schema %s: %w", name, err)
			return
		}
		schemas[name] = s
	}
}

// Schema returns one of the embedded, compiled schemas.
func Schema(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(compileSchemas)
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema: %s", name)
	}
	return s, nil
}

// Validate checks a generic JSON value (as produced by json.Unmarshal into any)
// against the named schema.
func Validate(name string, v any) error {
	s, err := Schema(name)
	if err != nil {
		return err
	}
	return s.Validate(v)
}
