package agent

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed config.schema.json
var configSchemaJSON []byte

// SchemaError is one violation of the configuration schema.
type SchemaError struct {
	Path    string
	Message string
}

func (e SchemaError) String() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

var configSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(configSchemaJSON, &doc); err != nil {
		return nil, fmt.Errorf("parse embedded schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.schema.json", doc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile("config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
})

// validateConfig checks a decoded YAML document against the embedded
// schema.
func validateConfig(doc any) []SchemaError {
	schema, err := configSchema()
	if err != nil {
		return []SchemaError{{Message: err.Error()}}
	}
	inst, err := jsonDoc(doc)
	if err != nil {
		return []SchemaError{{Message: fmt.Sprintf("configuration is not plain data: %v", err)}}
	}
	err = schema.Validate(inst)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []SchemaError{{Message: err.Error()}}
	}
	return collectErrors(ve)
}

// collectErrors gathers the leaf errors of a validation error tree.
func collectErrors(ve *jsonschema.ValidationError) []SchemaError {
	if len(ve.Causes) > 0 {
		var out []SchemaError
		for _, cause := range ve.Causes {
			out = append(out, collectErrors(cause)...)
		}
		return out
	}
	path := ""
	if len(ve.InstanceLocation) > 0 {
		path = "/" + strings.Join(ve.InstanceLocation, "/")
	}
	return []SchemaError{{Path: path, Message: ve.Error()}}
}
