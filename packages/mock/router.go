package mock

import (
	"net/http"
	"regexp"
	"strings"
)

// HandlerFunc serves a matched route. params holds the path placeholders.
type HandlerFunc func(w http.ResponseWriter, r *http.Request, params map[string]string)

// Route represents a mock route
type Route struct {
	Method      string
	PathPattern string
	PathRegex   *regexp.Regexp
	Name        string
	Handler     HandlerFunc
}

// Router matches incoming requests to routes
type Router struct {
	routes []*Route
}

// NewRouter creates a new router
func NewRouter() *Router {
	return &Router{
		routes: make([]*Route, 0),
	}
}

// Handle registers a handler for a method and a path pattern such as
// /posts/{id}.
func (r *Router) Handle(method, pattern, name string, h HandlerFunc) {
	r.routes = append(r.routes, &Route{
		Method:      method,
		PathPattern: pattern,
		PathRegex:   createPathRegex(pattern),
		Name:        name,
		Handler:     h,
	})
}

// Match finds a route matching the given method and path
func (r *Router) Match(method, path string) (*Route, map[string]string) {
	path = normalizePath(path)

	for _, route := range r.routes {
		if !strings.EqualFold(route.Method, method) {
			continue
		}

		if params := matchPath(route, path); params != nil {
			return route, params
		}
	}

	return nil, nil
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func createPathRegex(pattern string) *regexp.Regexp {
	parts := placeholderPattern.Split(pattern, -1)
	names := placeholderPattern.FindAllStringSubmatch(pattern, -1)

	var b strings.Builder
	b.WriteString("^")
	for i, part := range parts {
		b.WriteString(regexp.QuoteMeta(part))
		if i < len(names) {
			b.WriteString("(?P<" + names[i][1] + ">[^/]+)")
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func normalizePath(path string) string {
	// Ensure path starts with /
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// Remove trailing slash (except for root)
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}

func matchPath(route *Route, path string) map[string]string {
	matches := route.PathRegex.FindStringSubmatch(path)
	if matches == nil {
		return nil
	}

	params := make(map[string]string)
	for i, name := range route.PathRegex.SubexpNames() {
		if i > 0 && name != "" {
			params[name] = matches[i]
		}
	}
	return params
}
