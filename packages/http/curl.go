package http

import (
	"sort"
	"strings"

	"github.com/alessio/shellescape"
)

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// Curl renders a shell command that reproduces the request. Headers are
// emitted in name order.
func (r *Request) Curl() string {
	var b commandBuilder
	b.add("curl")
	if r.Method != "" && r.Method != "GET" {
		b.add("-X", r.Method)
	}

	names := make([]string, 0, len(r.Headers))
	for name := range r.Headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.add("-H", name+": "+r.Headers[name])
	}

	b.add(r.BuildURL())
	return b.String()
}
