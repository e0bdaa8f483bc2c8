package archive

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed structure.schema.json
var structureSchemaJSON []byte

var structureSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("structure.schema.json", bytes.NewReader(structureSchemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile("structure.schema.json")
})

// validateStructure checks a decoded data.json document against the embedded schema.
func validateStructure(doc any) error {
	schema, err := structureSchema()
	if err != nil {
		return fmt.Errorf("compile structure schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("structure file: %s", strings.Join(issues(verr), "; "))
		}
		return err
	}
	return nil
}

func issues(err *jsonschema.ValidationError) []string {
	var out []string
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if len(node.Causes) == 0 {
			location := node.InstanceLocation
			if location == "" {
				location = "#"
			}
			out = append(out, location+": "+strings.TrimSpace(node.Message))
			return
		}
		for _, cause := range node.Causes {
			walk(cause)
		}
	}
	walk(err)
	return out
}
