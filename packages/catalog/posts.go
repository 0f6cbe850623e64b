package catalog

import (
	"github.com/abdul-hamid-achik/postspec/packages/assertions"
	"github.com/abdul-hamid-achik/postspec/packages/core/runner"
	"github.com/abdul-hamid-achik/postspec/packages/spec"
)

// DefaultBaseURI is the public API the built-in suite targets.
const DefaultBaseURI = "https://jsonplaceholder.typicode.com"

const (
	PathPostByID     = "/posts/{id}"
	PathAllPosts     = "/posts"
	PathPostsByUser  = "/posts?userId={userId}"
	PathPostsByTitle = "/posts?title={title}"
	PathPostsByBody  = "/posts?body={body}"
	PathPostsFilter  = "/posts?id={id}&userId={userId}&title={title}&body={body}"

	ValidID          = 1
	InvalidIDNumber  = -1
	InvalidIDText    = "b"
	ValidUserID      = 1
	InvalidUserIDNum = -1
	InvalidUserIDTxt = "b"
	ValidTitle       = "sunt aut facere repellat provident occaecati excepturi optio reprehenderit"
	ValidBody        = "quia et suscipit\nsuscipit recusandae consequuntur expedita et cum\nreprehenderit molestiae ut ut quas totam\nnostrum rerum est autem sunt rem eveniet architecto"
	// Title and body filters are probed with a number.
	InvalidTitle = 1
	InvalidBody  = 1

	emptyObject = "{}"
	emptyArray  = "[]"
)

// Posts returns the built-in /posts suite against baseURI. Every call builds
// fresh fixtures.
func Posts(baseURI string) *runner.Suite {
	if baseURI == "" {
		baseURI = DefaultBaseURI
	}

	byID := spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, PathPostByID)
	all := spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, PathAllPosts)
	byUser := spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, PathPostsByUser)
	byTitle := spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, PathPostsByTitle)
	byBody := spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, PathPostsByBody)
	filter := spec.NewRequestSpec(baseURI, spec.ContentTypeJSON, PathPostsFilter)

	validAll := spec.Params{"id": ValidID, "userId": ValidUserID, "title": ValidTitle, "body": ValidBody}

	cases := []*runner.Case{
		{
			Name:     "get post by valid id",
			Tags:     []string{"id", "smoke"},
			Request:  byID,
			Params:   spec.Params{"id": ValidID},
			Mode:     spec.ParamPath,
			Response: validPost(ValidID),
		},
		{
			Name:     "get post by invalid id which is number",
			Tags:     []string{"id", "negative"},
			Request:  byID,
			Params:   spec.Params{"id": InvalidIDNumber},
			Mode:     spec.ParamPath,
			Response: invalidPost(),
		},
		{
			Name:     "get post by invalid id which is not number",
			Tags:     []string{"id", "negative"},
			Request:  byID,
			Params:   spec.Params{"id": InvalidIDText},
			Mode:     spec.ParamPath,
			Response: invalidPost(),
		},
		{
			Name:    "get all posts",
			Tags:    []string{"smoke"},
			Request: all,
			Mode:    spec.ParamNone,
			Response: spec.WithBodyCheck(
				assertions.AnyOf(assertions.MatchesSchema(assertions.SchemaManyPosts), assertions.Is(emptyObject)),
				200,
			),
		},
		{
			Name:     "get posts by valid userId",
			Tags:     []string{"userId", "smoke"},
			Request:  byUser,
			Params:   spec.Params{"userId": ValidUserID},
			Mode:     spec.ParamQuery,
			Response: validList(map[string]any{"userId": ValidUserID}, emptyObject),
		},
		{
			Name:     "get posts by invalid userId which is number",
			Tags:     []string{"userId", "negative"},
			Request:  byUser,
			Params:   spec.Params{"userId": InvalidUserIDNum},
			Mode:     spec.ParamQuery,
			Response: emptyList("userId"),
		},
		{
			Name:     "get posts by invalid userId which is not number",
			Tags:     []string{"userId", "negative"},
			Request:  byUser,
			Params:   spec.Params{"userId": InvalidUserIDTxt},
			Mode:     spec.ParamQuery,
			Response: emptyList("userId"),
		},
		{
			Name:     "get posts by valid title",
			Tags:     []string{"title"},
			Request:  byTitle,
			Params:   spec.Params{"title": ValidTitle},
			Mode:     spec.ParamQuery,
			Response: validList(map[string]any{"title": ValidTitle}, emptyArray),
		},
		{
			Name:     "get posts by invalid title",
			Tags:     []string{"title", "negative"},
			Request:  byTitle,
			Params:   spec.Params{"title": InvalidTitle},
			Mode:     spec.ParamQuery,
			Response: emptyList("title"),
		},
		{
			Name:     "get posts by valid body",
			Tags:     []string{"body"},
			Request:  byBody,
			Params:   spec.Params{"body": ValidBody},
			Mode:     spec.ParamQuery,
			Response: validList(map[string]any{"body": ValidBody}, emptyArray),
		},
		{
			Name:     "get posts by invalid body",
			Tags:     []string{"body", "negative"},
			Request:  byBody,
			Params:   spec.Params{"body": InvalidBody},
			Mode:     spec.ParamQuery,
			Response: emptyList("body"),
		},
		{
			Name:     "get posts by all valid filters",
			Tags:     []string{"combination"},
			Request:  filter,
			Params:   validAll,
			Mode:     spec.ParamQuery,
			Response: validList(validAll, emptyArray),
		},
		{
			Name:     "get posts by valid id and userId",
			Tags:     []string{"combination"},
			Request:  filter,
			Params:   spec.Params{"id": ValidID, "userId": ValidUserID},
			Mode:     spec.ParamQuery,
			Response: validList(map[string]any{"id": ValidID, "userId": ValidUserID}, emptyArray),
		},
	}

	invalid := map[string]any{
		"id":     InvalidIDText,
		"userId": InvalidUserIDTxt,
		"title":  InvalidTitle,
		"body":   InvalidBody,
	}
	for _, field := range []string{"id", "userId", "title", "body"} {
		params := spec.Params{}
		for k, v := range validAll {
			params[k] = v
		}
		params[field] = invalid[field]

		cases = append(cases, &runner.Case{
			Name:     "get posts by valid filters and invalid " + field,
			Tags:     []string{"combination", "negative"},
			Request:  filter,
			Params:   params,
			Mode:     spec.ParamQuery,
			Response: emptyList("id", "userId", "title", "body"),
		})
	}

	return &runner.Suite{Name: "posts", Cases: cases}
}

// validPost accepts the matching post or an empty object.
func validPost(id int) spec.ResponseSpec {
	return spec.WithFieldsAndBody(
		map[string]assertions.Predicate{
			"id": assertions.AnyOf(assertions.Equal(id), assertions.Null()),
		},
		assertions.AnyOf(assertions.MatchesSchema(assertions.SchemaOnePost), assertions.Is(emptyObject)),
		200,
	)
}

func invalidPost() spec.ResponseSpec {
	return spec.WithFieldsAndBody(
		map[string]assertions.Predicate{"id": assertions.Null()},
		assertions.Is(emptyObject),
		200,
	)
}

// validList expects every element to carry the filtered values; empty is the
// other accepted shape.
func validList(filters map[string]any, empty string) spec.ResponseSpec {
	b := spec.NewResponseSpecBuilder()
	for field, v := range filters {
		b.ExpectField(field, assertions.AnyOf(assertions.EveryItem(assertions.Equal(v)), assertions.Null()))
	}
	return b.
		ExpectBody(assertions.AnyOf(assertions.MatchesSchema(assertions.SchemaManyPosts), assertions.Is(empty))).
		ExpectStatus(200).
		Build()
}

func emptyList(fields ...string) spec.ResponseSpec {
	b := spec.NewResponseSpecBuilder()
	for _, field := range fields {
		b.ExpectField(field, assertions.EveryItem(assertions.Null()))
	}
	return b.ExpectBody(assertions.Is(emptyArray)).ExpectStatus(200).Build()
}
