package assertions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqual(t *testing.T) {
	tests := []struct {
		name     string
		expected any
		actual   any
		passed   bool
	}{
		{"int equals decoded float", 1, float64(1), true},
		{"different numbers", 1, float64(2), false},
		{"string equals string", "sunt", "sunt", true},
		{"numeric string is not a number", 1, "1", false},
		{"number is not a numeric string", "1", float64(1), false},
		{"null equals null", nil, nil, true},
		{"null is not zero", nil, float64(0), false},
		{"arrays compare structurally", []int{1, 2}, []any{float64(1), float64(2)}, true},
		{"arrays differ", []int{1, 2}, []any{float64(2), float64(1)}, false},
		{"maps compare structurally", map[string]any{"id": 1}, map[string]any{"id": float64(1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, msg := Equal(tt.expected).Test(tt.actual)
			assert.Equal(t, tt.passed, passed, "Message: %s", msg)
			if !passed {
				assert.NotEmpty(t, msg)
			}
		})
	}
}

func TestNull(t *testing.T) {
	passed, _ := Null().Test(nil)
	assert.True(t, passed)

	passed, msg := Null().Test(float64(1))
	assert.False(t, passed)
	assert.Equal(t, "expected null, got 1", msg)
}

func TestAnyOf(t *testing.T) {
	p := AnyOf(Equal(1), Null())

	passed, _ := p.Test(float64(1))
	assert.True(t, passed)

	passed, _ = p.Test(nil)
	assert.True(t, passed)

	passed, msg := p.Test(float64(2))
	assert.False(t, passed)
	assert.Contains(t, msg, "expected 1, got 2")
	assert.Contains(t, msg, "expected null, got 2")

	assert.Equal(t, "any of (equal to 1, null)", p.Describe())

	passed, _ = AnyOf().Test(nil)
	assert.False(t, passed)
}

func TestEveryItem(t *testing.T) {
	p := EveryItem(Equal(1))

	t.Run("all items match", func(t *testing.T) {
		passed, _ := p.Test([]any{float64(1), float64(1)})
		assert.True(t, passed)
	})

	t.Run("empty array passes", func(t *testing.T) {
		passed, _ := p.Test([]any{})
		assert.True(t, passed)
	})

	t.Run("one item differs", func(t *testing.T) {
		passed, msg := p.Test([]any{float64(1), float64(3)})
		assert.False(t, passed)
		assert.Equal(t, "item[1]: expected 1, got 3", msg)
	})

	t.Run("not an array", func(t *testing.T) {
		passed, msg := p.Test(nil)
		assert.False(t, passed)
		assert.Equal(t, "expected array, got null", msg)
	})

	t.Run("every item null", func(t *testing.T) {
		passed, _ := EveryItem(Null()).Test([]any{nil, nil})
		assert.True(t, passed)
	})
}

func TestIs(t *testing.T) {
	tests := []struct {
		name    string
		literal string
		actual  any
		passed  bool
	}{
		{"empty object", "{}", map[string]any{}, true},
		{"empty object with spaces", "{ }", map[string]any{}, true},
		{"empty array", "[]", []any{}, true},
		{"empty array is not empty object", "{}", []any{}, false},
		{"non-empty object", "{}", map[string]any{"id": float64(1)}, false},
		{"raw text", "not found", "not found\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passed, msg := Is(tt.literal).Test(tt.actual)
			assert.Equal(t, tt.passed, passed, "Message: %s", msg)
		})
	}
}

func TestZeroPredicate(t *testing.T) {
	var p Predicate
	assert.True(t, p.IsZero())
	passed, msg := p.Test(nil)
	assert.False(t, passed)
	assert.Equal(t, "empty predicate", msg)
}

func TestMatchesSchema(t *testing.T) {
	post := map[string]any{
		"userId": float64(1),
		"id":     float64(1),
		"title":  "sunt aut facere",
		"body":   "quia et suscipit",
	}

	t.Run("one post", func(t *testing.T) {
		passed, msg := MatchesSchema(SchemaOnePost).Test(post)
		assert.True(t, passed, "Message: %s", msg)
	})

	t.Run("many posts", func(t *testing.T) {
		passed, msg := MatchesSchema(SchemaManyPosts).Test([]any{post, post})
		assert.True(t, passed, "Message: %s", msg)
	})

	t.Run("empty object is not a post", func(t *testing.T) {
		passed, msg := MatchesSchema(SchemaOnePost).Test(map[string]any{})
		assert.False(t, passed)
		assert.Contains(t, msg, "schema validation failed")
	})

	t.Run("wrong field type", func(t *testing.T) {
		bad := map[string]any{"userId": "1", "id": float64(1), "title": "t", "body": "b"}
		passed, _ := MatchesSchema(SchemaOnePost).Test(bad)
		assert.False(t, passed)
	})

	t.Run("unknown schema", func(t *testing.T) {
		passed, msg := MatchesSchema("comments").Test(post)
		assert.False(t, passed)
		assert.Contains(t, msg, "unknown schema")
	})

	t.Run("schema file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "schema.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"type": "object", "required": ["id"]}`), 0644))

		passed, _ := MatchesSchemaFile(path).Test(post)
		assert.True(t, passed)

		passed, _ = MatchesSchemaFile(path).Test(map[string]any{})
		assert.False(t, passed)
	})

	t.Run("missing schema file", func(t *testing.T) {
		passed, msg := MatchesSchemaFile("/nonexistent/schema.json").Test(post)
		assert.False(t, passed)
		assert.Contains(t, msg, "failed to read schema file")
	})
}

func TestSchemaNames(t *testing.T) {
	assert.Equal(t, []string{SchemaManyPosts, SchemaOnePost}, SchemaNames())
}
