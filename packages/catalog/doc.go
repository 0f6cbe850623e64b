// Package catalog provides test cases for the posts API.
//
// The built-in suite is assembled in Go by Posts. Additional suites can be
// written as YAML catalogs and read with Load or Parse:
//
//	name: posts
//	baseUri: https://jsonplaceholder.typicode.com
//	contentType: json
//	requests:
//	  byId: /posts/{id}
//	cases:
//	  - name: get post by valid id
//	    request: byId
//	    mode: path
//	    params: {id: 1}
//	    expect:
//	      status: 200
//	      fields:
//	        id: {anyOf: [{equal: 1}, {null: true}]}
//	      body: {anyOf: [{schema: one-post}, {is: "{}"}]}
//
// Predicates are single-key mappings: equal, null, anyOf, everyItem, is and
// schema. A schema value is either a built-in schema name or a path to a
// JSON schema file, relative to the catalog.
package catalog
