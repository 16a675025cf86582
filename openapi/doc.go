// Package openapi describes a built route table as an OpenAPI v3.1.0
// document.
//
// Describe walks the table and emits one path per route variant, with the
// parameter constraints as schema patterns and the dispatch target as the
// x-target extension of each operation:
//
//	doc := openapi.Describe(r.Table(), openapi.Config{
//	    Info: openapi.Info{Title: "Users", Version: "1.0.0"},
//	})
//
// Handle serves the same document from the router itself. It registers its
// routes, so it has to run before Build:
//
//	r := mux.NewRouter()
//	r.HandleFunc("/users/{id:num}[/{tab:slug}]", showUser).Named("user.show")
//	openapi.Handle(r, "/docs", nil)
//	if err := r.Build(); err != nil {
//	    log.Fatal(err)
//	}
//
//	// GET /docs/schema.json and GET /docs/schema.yaml
//
// See: https://spec.openapis.org/oas/v3.1.0
package openapi
