package openapi

import (
	"strconv"
	"strings"

	"github.com/vitalvas/waypoint/mux"
)

// Version is the OpenAPI version of generated documents.
const Version = "3.1.0"

// Config configures Describe.
type Config struct {
	// Info is copied into the document. Title and Version default to
	// "API" and "0.0.0".
	Info Info

	// Servers is copied into the document.
	Servers []Server

	// Exclude leaves routes for which it returns true out of the document.
	Exclude func(route *mux.Route) bool
}

// Describe returns an OpenAPI document describing the routes of t.
//
// Every variant of a route becomes its own path, so "/users/{id}[/{tab}]"
// is described as "/users/{id}" and "/users/{id}/{tab}". Parameter
// constraints become schema patterns. When two routes describe the same
// method on the same path, the first registered wins, as it does when
// matching. Methods OpenAPI has no field for are skipped.
func Describe(t *mux.Table, cfg Config) *Document {
	doc := &Document{
		OpenAPI: Version,
		Info:    cfg.Info,
		Servers: cfg.Servers,
		Paths:   make(map[string]*PathItem),
	}
	if doc.Info.Title == "" {
		doc.Info.Title = "API"
	}
	if doc.Info.Version == "" {
		doc.Info.Version = "0.0.0"
	}

	for _, route := range t.Routes() {
		if cfg.Exclude != nil && cfg.Exclude(route) {
			continue
		}

		variants := route.Variants()
		methods := route.Methods()

		for depth, v := range variants {
			template := v.Template()

			item, ok := doc.Paths[template]
			if !ok {
				item = &PathItem{}
				doc.Paths[template] = item
			}

			params := pathParameters(route, template)

			for _, method := range methods {
				slot := item.operation(method)
				if slot == nil || *slot != nil {
					continue
				}

				*slot = &Operation{
					OperationID: operationID(route, method, len(methods), depth),
					Parameters:  params,
					Responses:   map[string]*Response{"default": {Description: "Response of " + describeTarget(route)}},
					Target:      route.Target(),
				}
			}
		}
	}

	return doc
}

// pathParameters describes the route parameters that occur in template.
func pathParameters(route *mux.Route, template string) []*Parameter {
	var out []*Parameter
	for _, p := range route.Params() {
		if !strings.Contains(template, "{"+p.Name+"}") {
			continue
		}

		param := &Parameter{
			Name:     p.Name,
			In:       "path",
			Required: true,
			Schema:   &Schema{Type: "string", Pattern: "^" + p.Regex + "$"},
		}
		if p.Optional {
			param.Description = "May be omitted together with its leading separator."
		}
		out = append(out, param)
	}
	return out
}

// operationID derives a unique id from the route name: "user.show",
// "user.show.post" for one of several methods and "user.show.1" for the
// first optional depth. Unnamed routes get none.
func operationID(route *mux.Route, method string, methods, depth int) string {
	id := route.Name()
	if id == "" {
		return ""
	}
	if methods > 1 {
		id += "." + strings.ToLower(method)
	}
	if depth > 0 {
		id += "." + strconv.Itoa(depth)
	}
	return id
}

func describeTarget(route *mux.Route) string {
	if t := route.Target(); t != "" {
		return t
	}
	return route.Path()
}
