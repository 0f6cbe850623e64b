package assertions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/abdul-hamid-achik/postspec/packages/http"
	"github.com/tidwall/gjson"
)

// Result is the outcome of one check against a response.
type Result struct {
	Passed   bool
	Message  string
	Expected string
	Actual   any
	Subject  string
}

type Evaluator struct {
	response *http.Response
	bodyJSON gjson.Result
	isJSON   bool
}

func NewEvaluator(resp *http.Response) *Evaluator {
	e := &Evaluator{
		response: resp,
	}
	if resp.HasJSONBody() {
		e.isJSON = true
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

// Status checks the response status code.
func (e *Evaluator) Status(expected int) *Result {
	result := &Result{
		Subject:  "status",
		Expected: fmt.Sprintf("equal to %d", expected),
		Actual:   e.response.StatusCode,
		Passed:   e.response.StatusCode == expected,
	}
	if !result.Passed {
		result.Message = fmt.Sprintf("expected status %d, got %d", expected, e.response.StatusCode)
	}
	return result
}

// Field checks the value at path. For array bodies the value is the list of
// path across all elements.
func (e *Evaluator) Field(path string, p Predicate) *Result {
	result := &Result{
		Subject:  path,
		Expected: p.Describe(),
	}

	actual, err := e.FieldValue(path)
	if err != nil {
		result.Message = err.Error()
		return result
	}
	result.Actual = actual
	result.Passed, result.Message = p.Test(actual)
	return result
}

// Body checks the whole payload: decoded JSON, or raw text when the body is
// not JSON.
func (e *Evaluator) Body(p Predicate) *Result {
	actual := e.BodyValue()
	result := &Result{
		Subject:  "body",
		Expected: p.Describe(),
		Actual:   actual,
	}
	result.Passed, result.Message = p.Test(actual)
	return result
}

func (e *Evaluator) BodyValue() any {
	if !e.isJSON {
		return e.response.BodyString()
	}
	return e.bodyJSON.Value()
}

func (e *Evaluator) FieldValue(path string) (any, error) {
	if !e.isJSON {
		return nil, fmt.Errorf("response body is not JSON")
	}

	path = convertBracketNotation(path)

	switch {
	case e.bodyJSON.IsArray():
		values := make([]any, 0)
		e.bodyJSON.ForEach(func(_, item gjson.Result) bool {
			v := item.Get(path)
			if v.Exists() {
				values = append(values, v.Value())
			} else {
				values = append(values, nil)
			}
			return true
		})
		return values, nil
	case e.bodyJSON.IsObject():
		v := e.bodyJSON.Get(path)
		if !v.Exists() {
			return nil, nil
		}
		return v.Value(), nil
	default:
		return nil, nil
	}
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// convertBracketNotation converts array bracket notation to gjson dot notation
// e.g., "[0].id" -> "0.id", "items[0].tags[1]" -> "items.0.tags.1"
func convertBracketNotation(path string) string {
	result := bracketIndex.ReplaceAllString(path, ".$1")
	return strings.TrimPrefix(result, ".")
}
