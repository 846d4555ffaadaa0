package targetio

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema.json
var schemaJSON []byte

var fillPattern = regexp.MustCompile(`^(#[0-9a-fA-F]{6}|[a-zA-Z]+)$`)

// fillColorChecker accepts a color name or #rrggbb.
type fillColorChecker struct{}

func (fillColorChecker) IsFormat(input interface{}) bool {
	s, ok := input.(string)
	return ok && fillPattern.MatchString(s)
}

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		gojsonschema.FormatCheckers.Add("fill-color", fillColorChecker{})
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
	})
	return schema, schemaErr
}

// validate checks a decoded YAML document against the target schema.
func validate(doc interface{}) error {
	s, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile target schema: %w", err)
	}
	result, err := s.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDefinition, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidDefinition, strings.Join(msgs, "; "))
	}
	return nil
}
