package resume

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed parsed_resume.schema.json
var schemaJSON string

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	})
	return schema, schemaErr
}

// Validate checks a parsed document against the prompt's JSON shape and
// returns one message per violation. Nil means the document conforms.
func Validate(raw []byte) []string {
	s, err := loadSchema()
	if err != nil {
		return []string{fmt.Sprintf("schema unavailable: %v", err)}
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return []string{fmt.Sprintf("schema validation failed: %v", err)}
	}
	if result.Valid() {
		return nil
	}

	warnings := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		warnings = append(warnings, fmt.Sprintf("%s: %s", field, desc.Description()))
	}
	return warnings
}
