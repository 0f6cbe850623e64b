package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/abdul-hamid-achik/postspec/packages/assertions"
	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
	"github.com/abdul-hamid-achik/postspec/packages/spec"
	"gopkg.in/yaml.v3"
)

// File is the on-disk form of a catalog.
type File struct {
	Name        string            `yaml:"name"`
	BaseURI     string            `yaml:"baseUri"`
	ContentType string            `yaml:"contentType"`
	Requests    map[string]string `yaml:"requests"`
	Cases       []CaseSpec        `yaml:"cases"`
}

type CaseSpec struct {
	Name string `yaml:"name"`
	// Request names an entry of File.Requests; Path gives a template inline.
	Request string         `yaml:"request"`
	Path    string         `yaml:"path"`
	Mode    string         `yaml:"mode"`
	Params  map[string]any `yaml:"params"`
	Tags    []string       `yaml:"tags"`
	Skip    string         `yaml:"skip"`
	Expect  ExpectSpec     `yaml:"expect"`
}

type ExpectSpec struct {
	Status *int                     `yaml:"status"`
	Fields map[string]PredicateSpec `yaml:"fields"`
	Body   *PredicateSpec           `yaml:"body"`
}

// PredicateSpec holds an uncompiled predicate as written in the catalog.
type PredicateSpec struct {
	node *yaml.Node
}

func (p *PredicateSpec) UnmarshalYAML(value *yaml.Node) error {
	p.node = value
	return nil
}

// Load reads a catalog file. Relative schema paths resolve against the
// file's directory; the suite name defaults to the file name.
func Load(path string) (*runner.Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	suite, err := Parse(data, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if suite.Name == "" {
		suite.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return suite, nil
}

// Parse decodes and validates a catalog. Every problem found is reported,
// each naming the offending case.
func Parse(data []byte, baseDir string) (*runner.Suite, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	return f.Compile(baseDir)
}

func (f *File) Compile(baseDir string) (*runner.Suite, error) {
	var errs []error

	contentType, err := spec.ParseContentType(f.ContentType)
	if err != nil {
		errs = append(errs, fmt.Errorf("contentType: %w", err))
	}

	baseURI := f.BaseURI
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}

	suite := &runner.Suite{Name: f.Name}
	seen := make(map[string]bool)

	for i, cs := range f.Cases {
		label := cs.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i+1)
		}

		c, caseErrs := f.compileCase(cs, baseURI, contentType, baseDir)
		if cs.Name != "" && seen[cs.Name] {
			caseErrs = append(caseErrs, errors.New("duplicate case name"))
		}
		seen[cs.Name] = true

		for _, e := range caseErrs {
			errs = append(errs, fmt.Errorf("case %q: %w", label, e))
		}
		if len(caseErrs) == 0 {
			suite.Cases = append(suite.Cases, c)
		}
	}

	if len(f.Cases) == 0 {
		errs = append(errs, errors.New("catalog has no cases"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return suite, nil
}

func (f *File) compileCase(cs CaseSpec, baseURI string, contentType spec.ContentType, baseDir string) (*runner.Case, []error) {
	var errs []error

	if cs.Name == "" {
		errs = append(errs, errors.New("name: required"))
	}

	path := cs.Path
	switch {
	case cs.Request != "" && cs.Path != "":
		errs = append(errs, errors.New("request and path are mutually exclusive"))
	case cs.Request != "":
		tmpl, ok := f.Requests[cs.Request]
		if !ok {
			errs = append(errs, fmt.Errorf("request: unknown request %q", cs.Request))
		}
		path = tmpl
	case cs.Path == "":
		errs = append(errs, errors.New("request or path: required"))
	}

	mode, err := spec.ParseParamMode(cs.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("mode: %w", err))
	}

	status := 200
	if cs.Expect.Status != nil {
		status = *cs.Expect.Status
		if status < 100 || status > 599 {
			errs = append(errs, fmt.Errorf("expect.status: %d is not an HTTP status", status))
		}
	}

	b := spec.NewResponseSpecBuilder().ExpectStatus(status)
	for field, ps := range cs.Expect.Fields {
		p, err := ps.Compile(baseDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("expect.fields.%s: %w", field, err))
			continue
		}
		b.ExpectField(field, p)
	}
	if cs.Expect.Body != nil {
		p, err := cs.Expect.Body.Compile(baseDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("expect.body: %w", err))
		} else {
			b.ExpectBody(p)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &runner.Case{
		Name:     cs.Name,
		Tags:     cs.Tags,
		Skip:     cs.Skip,
		Request:  spec.NewRequestSpec(baseURI, contentType, path),
		Params:   spec.Params(cs.Params),
		Mode:     mode,
		Response: b.Build(),
	}, nil
}

// Compile turns the written form into a predicate.
func (p PredicateSpec) Compile(baseDir string) (assertions.Predicate, error) {
	if p.node == nil {
		return assertions.Predicate{}, errors.New("empty predicate")
	}
	return compileNode(p.node, baseDir)
}

func compileNode(n *yaml.Node, baseDir string) (assertions.Predicate, error) {
	var zero assertions.Predicate

	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return zero, fmt.Errorf("line %d: predicate must be a mapping with exactly one key", n.Line)
	}
	key, value := n.Content[0].Value, n.Content[1]

	switch key {
	case "equal":
		var v any
		if err := value.Decode(&v); err != nil {
			return zero, fmt.Errorf("equal: %w", err)
		}
		return assertions.Equal(v), nil

	case "null":
		var b bool
		if err := value.Decode(&b); err != nil || !b {
			return zero, fmt.Errorf("line %d: null: only `null: true` is supported", value.Line)
		}
		return assertions.Null(), nil

	case "anyOf":
		if value.Kind != yaml.SequenceNode || len(value.Content) == 0 {
			return zero, fmt.Errorf("line %d: anyOf: expected a non-empty list", value.Line)
		}
		ps := make([]assertions.Predicate, 0, len(value.Content))
		for i, item := range value.Content {
			p, err := compileNode(item, baseDir)
			if err != nil {
				return zero, fmt.Errorf("anyOf[%d]: %w", i, err)
			}
			ps = append(ps, p)
		}
		return assertions.AnyOf(ps...), nil

	case "everyItem":
		p, err := compileNode(value, baseDir)
		if err != nil {
			return zero, fmt.Errorf("everyItem: %w", err)
		}
		return assertions.EveryItem(p), nil

	case "is":
		if value.Kind != yaml.ScalarNode {
			return zero, fmt.Errorf("line %d: is: expected a string literal", value.Line)
		}
		return assertions.Is(value.Value), nil

	case "schema":
		if value.Kind != yaml.ScalarNode || value.Value == "" {
			return zero, fmt.Errorf("line %d: schema: expected a schema name or file", value.Line)
		}
		return compileSchema(value.Value, baseDir)

	default:
		return zero, fmt.Errorf("line %d: unknown predicate %q", n.Content[0].Line, key)
	}
}

func compileSchema(ref, baseDir string) (assertions.Predicate, error) {
	for _, name := range assertions.SchemaNames() {
		if ref == name {
			return assertions.MatchesSchema(name), nil
		}
	}

	if !strings.HasSuffix(ref, ".json") {
		return assertions.Predicate{}, fmt.Errorf("schema: unknown schema %q (built-in: %s)",
			ref, strings.Join(assertions.SchemaNames(), ", "))
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	if _, err := os.Stat(path); err != nil {
		return assertions.Predicate{}, fmt.Errorf("schema: %w", err)
	}
	return assertions.MatchesSchemaFile(path), nil
}
