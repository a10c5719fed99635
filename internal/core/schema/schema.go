package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/po-digitizer/internal/entity"
)

//go:embed result.schema.json
var resultSchema []byte

const resultSchemaURL = "result.schema.json"

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

// Result returns the compiled result contract.
func Result() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiled, compileErr = Compile(resultSchema)
	})
	return compiled, compileErr
}

// Compile builds a schema from raw JSON.
func Compile(raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resultSchemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(resultSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, nil
}

// ValidateJSON checks encoded result bytes against the result contract.
func ValidateJSON(data []byte) error {
	s, err := Result()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}

// Validate encodes doc and checks it against the result contract. The
// encoded bytes are returned so callers can store them without a second
// marshal.
func Validate(doc *entity.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	return data, nil
}
