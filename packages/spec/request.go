package spec

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// ErrUnboundPlaceholder is returned when a path placeholder has no binding.
var ErrUnboundPlaceholder = errors.New("unbound path placeholder")

type ContentType int

const (
	ContentTypeJSON ContentType = iota
	ContentTypeText
	ContentTypeXML
	ContentTypeAny
)

func (c ContentType) String() string {
	switch c {
	case ContentTypeJSON:
		return "json"
	case ContentTypeText:
		return "text"
	case ContentTypeXML:
		return "xml"
	case ContentTypeAny:
		return "any"
	default:
		return "unknown"
	}
}

// MIME returns the media type sent in Content-Type and Accept.
func (c ContentType) MIME() string {
	switch c {
	case ContentTypeJSON:
		return "application/json"
	case ContentTypeText:
		return "text/plain"
	case ContentTypeXML:
		return "application/xml"
	default:
		return "*/*"
	}
}

// ParseContentType accepts the names produced by String. An empty name means
// json.
func ParseContentType(s string) (ContentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return ContentTypeJSON, nil
	case "text":
		return ContentTypeText, nil
	case "xml":
		return ContentTypeXML, nil
	case "any":
		return ContentTypeAny, nil
	default:
		return ContentTypeJSON, fmt.Errorf("unknown content type %q", s)
	}
}

// ParamMode selects how a binding is applied to a request template.
type ParamMode int

const (
	ParamNone ParamMode = iota
	ParamPath
	ParamQuery
)

func (m ParamMode) String() string {
	switch m {
	case ParamNone:
		return "none"
	case ParamPath:
		return "path"
	case ParamQuery:
		return "query"
	default:
		return "unknown"
	}
}

func ParseParamMode(s string) (ParamMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ParamNone, nil
	case "path":
		return ParamPath, nil
	case "query":
		return ParamQuery, nil
	default:
		return ParamNone, fmt.Errorf("unknown parameter mode %q (use none, path or query)", s)
	}
}

// Params binds placeholder names to values. Values keep their type and are
// rendered with their natural string form, so a string can be sent where the
// remote API expects a number.
type Params map[string]any

func (p Params) render(name string) (string, bool) {
	v, ok := p[name]
	if !ok {
		return "", false
	}
	if v == nil {
		return "", true
	}
	return fmt.Sprint(v), true
}

// Names returns the bound names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RequestSpec is an immutable GET request template.
type RequestSpec struct {
	baseURI     string
	contentType ContentType
	basePath    string
}

// NewRequestSpec builds a request template. Nothing is validated here; a bad
// base URI surfaces as an error when the request is executed.
func NewRequestSpec(baseURI string, contentType ContentType, basePath string) RequestSpec {
	return RequestSpec{
		baseURI:     baseURI,
		contentType: contentType,
		basePath:    basePath,
	}
}

func (r RequestSpec) BaseURI() string          { return r.baseURI }
func (r RequestSpec) ContentType() ContentType { return r.contentType }
func (r RequestSpec) BasePath() string         { return r.basePath }

// WithBaseURI returns a copy of r pointed at another host.
func (r RequestSpec) WithBaseURI(baseURI string) RequestSpec {
	r.baseURI = baseURI
	return r
}

func (r RequestSpec) String() string {
	return strings.TrimRight(r.baseURI, "/") + r.basePath
}

var placeholderPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Placeholders lists the {name} tokens of the template in order of
// appearance.
func (r RequestSpec) Placeholders() []string {
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(r.basePath, -1) {
		names = append(names, m[1])
	}
	return names
}

// Expand renders the final URL for params according to mode.
func (r RequestSpec) Expand(params Params, mode ParamMode) (string, error) {
	path, query, _ := strings.Cut(r.basePath, "?")

	switch mode {
	case ParamNone:
		return r.join(r.basePath), nil
	case ParamPath:
		expanded, err := expandPath(path, params)
		if err != nil {
			return "", err
		}
		if query != "" {
			expanded += "?" + query
		}
		return r.join(expanded), nil
	case ParamQuery:
		if placeholderPattern.MatchString(path) {
			return "", fmt.Errorf("%w in %q: query mode only fills the query string", ErrUnboundPlaceholder, path)
		}
		q := expandQuery(query, params)
		if q == "" {
			return r.join(path), nil
		}
		return r.join(path + "?" + q), nil
	default:
		return "", fmt.Errorf("unknown parameter mode %d", mode)
	}
}

func (r RequestSpec) join(path string) string {
	base := strings.TrimRight(r.baseURI, "/")
	if path != "" && !strings.HasPrefix(path, "/") && !strings.HasPrefix(path, "?") {
		path = "/" + path
	}
	return base + path
}

func expandPath(path string, params Params) (string, error) {
	var missing []string
	expanded := placeholderPattern.ReplaceAllStringFunc(path, func(token string) string {
		name := token[1 : len(token)-1]
		value, ok := params.render(name)
		if !ok {
			missing = append(missing, name)
			return token
		}
		return url.PathEscape(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnboundPlaceholder, strings.Join(missing, ", "))
	}
	return expanded, nil
}

// expandQuery fills k={name} pairs from params, drops pairs whose placeholder
// is unbound and appends bindings the template does not mention.
func expandQuery(query string, params Params) string {
	var pairs []string
	used := make(map[string]bool)

	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			if pair == "" {
				continue
			}
			key, value, _ := strings.Cut(pair, "=")
			m := placeholderPattern.FindStringSubmatch(value)
			if m == nil || m[0] != value {
				pairs = append(pairs, pair)
				continue
			}
			name := m[1]
			used[name] = true
			rendered, ok := params.render(name)
			if !ok {
				continue
			}
			pairs = append(pairs, key+"="+url.QueryEscape(rendered))
		}
	}

	for _, name := range params.Names() {
		if used[name] {
			continue
		}
		rendered, _ := params.render(name)
		pairs = append(pairs, url.QueryEscape(name)+"="+url.QueryEscape(rendered))
	}

	return strings.Join(pairs, "&")
}
