package openapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/vitalvas/waypoint/mux"
	"gopkg.in/yaml.v3"
)

// Route names of the endpoints registered by Handle. Both routes are
// excluded from the served document.
const (
	JSONRouteName = "openapi.json"
	YAMLRouteName = "openapi.yaml"
)

// HandleConfig configures the endpoints registered by Handle.
type HandleConfig struct {
	Config

	// JSONFilename is the path for the JSON spec endpoint
	// (default: "schema.json"). Set to "-" to disable.
	//
	// Relative paths are joined with the base path:
	//
	//	"schema.json"       -> <basePath>/schema.json
	//	"data/openapi.json" -> <basePath>/data/openapi.json
	//
	// Absolute paths (starting with "/") are used as-is:
	//
	//	"/api/v1/swagger.json" -> /api/v1/swagger.json
	JSONFilename string

	// YAMLFilename is the path for the YAML spec endpoint
	// (default: "schema.yaml"). Set to "-" to disable.
	// Follows the same absolute/relative rules as JSONFilename.
	YAMLFilename string
}

// jsonFilename returns the configured JSON spec filename, defaulting to "schema.json".
func (cfg HandleConfig) jsonFilename() string {
	if cfg.JSONFilename == "" {
		return "schema.json"
	}
	return cfg.JSONFilename
}

// yamlFilename returns the configured YAML spec filename, defaulting to "schema.yaml".
func (cfg HandleConfig) yamlFilename() string {
	if cfg.YAMLFilename == "" {
		return "schema.yaml"
	}
	return cfg.YAMLFilename
}

// resolvePath returns the full route path for a filename.
// Absolute filenames (starting with "/") are returned as-is.
// Relative filenames are joined under basePath.
func resolvePath(basePath, filename string) string {
	if strings.HasPrefix(filename, "/") {
		return filename
	}
	if basePath == "" {
		return "/" + filename
	}
	return basePath + "/" + filename
}

// Handle registers GET routes serving the document of r's route table:
//
//	<JSONFilename path>    - OpenAPI document as JSON (unless JSONFilename is "-")
//	<YAMLFilename path>    - OpenAPI document as YAML (unless YAMLFilename is "-")
//
// Handle must be called before r is built. The document is generated on
// the first request from the built table and reused afterwards.
//
//	openapi.Handle(r, "/docs", nil)
func Handle(r *mux.Router, basePath string, cfg *HandleConfig) {
	if cfg == nil {
		cfg = &HandleConfig{}
	}
	basePath = strings.TrimRight(basePath, "/")

	s := &server{router: r, cfg: cfg.Config}
	exclude := s.cfg.Exclude
	s.cfg.Exclude = func(route *mux.Route) bool {
		if name := route.Name(); name == JSONRouteName || name == YAMLRouteName {
			return true
		}
		return exclude != nil && exclude(route)
	}

	if file := cfg.jsonFilename(); file != "-" {
		r.Handle(resolvePath(basePath, file), s.encoded("application/json", func(doc *Document) ([]byte, error) {
			return json.MarshalIndent(doc, "", "  ")
		})).Method(http.MethodGet).Named(JSONRouteName)
	}

	if file := cfg.yamlFilename(); file != "-" {
		r.Handle(resolvePath(basePath, file), s.encoded("application/x-yaml", func(doc *Document) ([]byte, error) {
			return yaml.Marshal(doc)
		})).Method(http.MethodGet).Named(YAMLRouteName)
	}
}

// server builds the document once per router.
type server struct {
	router *mux.Router
	cfg    Config

	once sync.Once
	doc  *Document
}

func (s *server) document() *Document {
	s.once.Do(func() {
		s.doc = Describe(s.router.Table(), s.cfg)
	})
	return s.doc
}

// encoded returns a dispatch target serving the document encoded by enc.
func (s *server) encoded(contentType string, enc func(*Document) ([]byte, error)) mux.DispatchFunc {
	var (
		once sync.Once
		data []byte
		err  error
	)
	return func(*mux.Context) (*mux.Response, error) {
		once.Do(func() {
			data, err = enc(s.document())
		})
		if err != nil {
			return nil, fmt.Errorf("openapi: encode document: %w", err)
		}

		res := mux.NewResponse(http.StatusOK, data)
		res.Header.Set("Content-Type", contentType)
		return res, nil
	}
}
