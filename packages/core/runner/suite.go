package runner

import (
	"github.com/abdul-hamid-achik/postspec/packages/spec"
)

// Outcome classifies a finished case.
type Outcome int

const (
	OutcomePass Outcome = iota
	OutcomeFail
	OutcomeError
	OutcomeSkip
)

func (o Outcome) String() string {
	switch o {
	case OutcomePass:
		return "pass"
	case OutcomeFail:
		return "fail"
	case OutcomeError:
		return "error"
	case OutcomeSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Case is one (request, binding, expectation) triple. Cases share no state
// and may run in any order.
type Case struct {
	Name     string
	Tags     []string
	Skip     string
	Request  spec.RequestSpec
	Params   spec.Params
	Mode     spec.ParamMode
	Response spec.ResponseSpec
}

type Suite struct {
	Name  string
	Cases []*Case
}

// Find returns the case with the given name.
func (s *Suite) Find(name string) (*Case, bool) {
	for _, c := range s.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Rebase returns a copy of the suite with every request pointed at baseURI.
func (s *Suite) Rebase(baseURI string) *Suite {
	out := &Suite{Name: s.Name, Cases: make([]*Case, len(s.Cases))}
	for i, c := range s.Cases {
		cp := *c
		cp.Request = c.Request.WithBaseURI(baseURI)
		out.Cases[i] = &cp
	}
	return out
}
