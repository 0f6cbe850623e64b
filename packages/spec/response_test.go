package spec

import (
	"math/rand"
	"testing"

	"github.com/abdul-hamid-achik/postspec/packages/assertions"
	"github.com/abdul-hamid-achik/postspec/packages/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       []byte(body),
	}
}

func TestWithBodyCheck(t *testing.T) {
	s := WithBodyCheck(assertions.Is("{}"), 200)

	assert.Empty(t, s.FieldNames())
	assert.True(t, s.HasBody())
	assert.Equal(t, 200, s.Status())

	results := s.Verify(jsonResponse(200, `{}`))
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s", r.Subject, r.Message)
	}
}

func TestWithFieldsAndBody(t *testing.T) {
	s := WithFieldsAndBody(map[string]assertions.Predicate{
		"id":     assertions.AnyOf(assertions.Equal(1), assertions.Null()),
		"userId": assertions.Equal(1),
	}, assertions.MatchesSchema(assertions.SchemaOnePost), 200)

	assert.Equal(t, []string{"id", "userId"}, s.FieldNames())

	results := s.Verify(jsonResponse(200, `{"userId": 1, "id": 1, "title": "t", "body": "b"}`))
	require.Len(t, results, 4)
	assert.Equal(t, "status", results[0].Subject)
	assert.Equal(t, "id", results[1].Subject)
	assert.Equal(t, "userId", results[2].Subject)
	assert.Equal(t, "body", results[3].Subject)
	for _, r := range results {
		assert.True(t, r.Passed, "%s: %s", r.Subject, r.Message)
	}
}

func TestVerify_ReportsEveryMismatch(t *testing.T) {
	s := WithFieldsAndBody(map[string]assertions.Predicate{
		"id":     assertions.Equal(2),
		"userId": assertions.Equal(3),
	}, assertions.Is("{}"), 201)

	results := s.Verify(jsonResponse(200, `{"userId": 1, "id": 1}`))
	require.Len(t, results, 4)
	for _, r := range results {
		assert.False(t, r.Passed, "%s should fail", r.Subject)
		assert.NotEmpty(t, r.Message)
	}
}

func TestVerify_OrderIndependent(t *testing.T) {
	body := `[{"id": 1, "userId": 1, "title": "t", "body": "b"}]`
	preds := []struct {
		name string
		p    assertions.Predicate
	}{
		{"id", assertions.EveryItem(assertions.Equal(1))},
		{"userId", assertions.EveryItem(assertions.Equal(2))},
		{"title", assertions.EveryItem(assertions.Equal("t"))},
		{"body", assertions.EveryItem(assertions.Equal("b"))},
	}

	outcome := func(order []int) map[string]bool {
		b := NewResponseSpecBuilder()
		for _, i := range order {
			b.ExpectField(preds[i].name, preds[i].p)
		}
		got := make(map[string]bool)
		for _, r := range b.Build().Verify(jsonResponse(200, body)) {
			got[r.Subject] = r.Passed
		}
		return got
	}

	want := outcome([]int{0, 1, 2, 3})
	assert.False(t, want["userId"])
	assert.True(t, want["id"])

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 10; i++ {
		assert.Equal(t, want, outcome(rng.Perm(len(preds))))
	}
}

func TestResponseSpecBuilder_BuildIsImmutable(t *testing.T) {
	b := NewResponseSpecBuilder().ExpectField("id", assertions.Null())
	first := b.Build()

	b.ExpectField("userId", assertions.Null()).ExpectStatus(404)
	second := b.Build()

	assert.Equal(t, []string{"id"}, first.FieldNames())
	assert.Equal(t, 200, first.Status())
	assert.Equal(t, []string{"id", "userId"}, second.FieldNames())
	assert.Equal(t, 404, second.Status())
}

func TestWithFieldsAndBody_CopiesInput(t *testing.T) {
	fields := map[string]assertions.Predicate{"id": assertions.Null()}
	s := WithFieldsAndBody(fields, assertions.Is("{}"), 200)

	fields["userId"] = assertions.Null()
	assert.Equal(t, []string{"id"}, s.FieldNames())
}

func TestVerify_WithoutBodyPredicate(t *testing.T) {
	s := NewResponseSpecBuilder().ExpectStatus(200).Build()
	results := s.Verify(jsonResponse(200, `[]`))
	require.Len(t, results, 1)
	assert.True(t, results[0].Passed)
}
