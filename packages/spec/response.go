package spec

import (
	"sort"

	"github.com/abdul-hamid-achik/postspec/packages/assertions"
	"github.com/abdul-hamid-achik/postspec/packages/http"
)

// ResponseSpec is an immutable set of checks a response must satisfy.
type ResponseSpec struct {
	fields map[string]assertions.Predicate
	body   assertions.Predicate
	status int
}

// WithBodyCheck builds a spec that only checks the whole body and the status.
func WithBodyCheck(body assertions.Predicate, status int) ResponseSpec {
	return NewResponseSpecBuilder().
		ExpectBody(body).
		ExpectStatus(status).
		Build()
}

// WithFieldsAndBody builds a spec with one independent check per field, plus
// the body and status checks.
func WithFieldsAndBody(fields map[string]assertions.Predicate, body assertions.Predicate, status int) ResponseSpec {
	b := NewResponseSpecBuilder()
	for name, p := range fields {
		b = b.ExpectField(name, p)
	}
	return b.ExpectBody(body).ExpectStatus(status).Build()
}

// Status returns the expected status code.
func (s ResponseSpec) Status() int { return s.status }

// Body returns the whole-body predicate; the zero predicate when none is set.
func (s ResponseSpec) Body() assertions.Predicate { return s.body }

// HasBody reports whether a whole-body predicate is registered.
func (s ResponseSpec) HasBody() bool { return !s.body.IsZero() }

// FieldNames returns the names of the field checks in sorted order.
func (s ResponseSpec) FieldNames() []string {
	names := make([]string, 0, len(s.fields))
	for name := range s.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Field returns the predicate registered for name.
func (s ResponseSpec) Field(name string) (assertions.Predicate, bool) {
	p, ok := s.fields[name]
	return p, ok
}

// Verify runs every check against resp. Checks are independent: all of them
// are evaluated and reported, status first, then fields by name, then body.
func (s ResponseSpec) Verify(resp *http.Response) []*assertions.Result {
	e := assertions.NewEvaluator(resp)
	results := make([]*assertions.Result, 0, len(s.fields)+2)

	results = append(results, e.Status(s.status))
	for _, name := range s.FieldNames() {
		results = append(results, e.Field(name, s.fields[name]))
	}
	if s.HasBody() {
		results = append(results, e.Body(s.body))
	}
	return results
}

// ResponseSpecBuilder assembles a ResponseSpec. Build copies the builder's
// state, so a built spec never changes when the builder is reused.
type ResponseSpecBuilder struct {
	fields map[string]assertions.Predicate
	body   assertions.Predicate
	status int
}

func NewResponseSpecBuilder() *ResponseSpecBuilder {
	return &ResponseSpecBuilder{
		fields: make(map[string]assertions.Predicate),
		status: 200,
	}
}

// ExpectField registers a check for one field. A later call for the same
// name replaces the earlier predicate.
func (b *ResponseSpecBuilder) ExpectField(name string, p assertions.Predicate) *ResponseSpecBuilder {
	b.fields[name] = p
	return b
}

func (b *ResponseSpecBuilder) ExpectBody(p assertions.Predicate) *ResponseSpecBuilder {
	b.body = p
	return b
}

func (b *ResponseSpecBuilder) ExpectStatus(status int) *ResponseSpecBuilder {
	b.status = status
	return b
}

func (b *ResponseSpecBuilder) Build() ResponseSpec {
	fields := make(map[string]assertions.Predicate, len(b.fields))
	for k, v := range b.fields {
		fields[k] = v
	}
	return ResponseSpec{
		fields: fields,
		body:   b.body,
		status: b.status,
	}
}
