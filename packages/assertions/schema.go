package assertions

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var builtinSchemas embed.FS

const (
	// SchemaOnePost validates a single post object.
	SchemaOnePost = "one-post"
	// SchemaManyPosts validates an array of post objects.
	SchemaManyPosts = "many-posts"
)

// SchemaNames lists the built-in schema names.
func SchemaNames() []string {
	entries, err := builtinSchemas.ReadDir("schemas")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names
}

// MatchesSchema validates the body against a built-in schema. An unknown
// name fails at evaluation time.
func MatchesSchema(name string) Predicate {
	return schemaPredicate("matches schema "+name, func() ([]byte, error) {
		data, err := builtinSchemas.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("unknown schema %q", name)
		}
		return data, nil
	})
}

// MatchesSchemaFile validates the body against a schema read from path.
func MatchesSchemaFile(path string) Predicate {
	return schemaPredicate("matches schema file "+path, func() ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file: %v", err)
		}
		return data, nil
	})
}

func schemaPredicate(desc string, load func() ([]byte, error)) Predicate {
	compile := sync.OnceValues(func() (*gojsonschema.Schema, error) {
		data, err := load()
		if err != nil {
			return nil, err
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
		if err != nil {
			return nil, fmt.Errorf("invalid schema: %v", err)
		}
		return schema, nil
	})

	return Predicate{
		desc: desc,
		test: func(actual any) (bool, string) {
			schema, err := compile()
			if err != nil {
				return false, err.Error()
			}

			actualJSON, err := json.Marshal(actual)
			if err != nil {
				return false, fmt.Sprintf("failed to marshal actual value: %v", err)
			}

			result, err := schema.Validate(gojsonschema.NewBytesLoader(actualJSON))
			if err != nil {
				return false, fmt.Sprintf("schema validation error: %v", err)
			}
			if result.Valid() {
				return true, ""
			}

			var errors []string
			for _, desc := range result.Errors() {
				errors = append(errors, desc.String())
			}
			return false, fmt.Sprintf("schema validation failed: %s", strings.Join(errors, "; "))
		},
	}
}
