package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"html/template"
	"io/fs"
	"maps"
	"sync"
)

type BuildMetadata struct {
	Outputs map[string]OutputInfo `json:"outputs"`
}

type OutputInfo struct {
	EntryPoint string       `json:"entryPoint"`
	Imports    []ImportInfo `json:"imports"`
}

type ImportInfo struct {
	Path string `json:"path"`
}

// Pipeline manages the asset build process, script loading and page templates
type Pipeline struct {
	config   Config
	metadata *BuildMetadata
	tmpl     *template.Template
	mu       sync.RWMutex
}

// New creates a new asset pipeline and loads every *.html template found in templates.
func New(config Config, templates fs.FS) (*Pipeline, error) {
	return NewWithFuncs(config, templates, nil)
}

// NewWithFuncs is New with custom template functions.
func NewWithFuncs(config Config, templates fs.FS, customFuncs template.FuncMap) (*Pipeline, error) {
	funcs := template.FuncMap{
		"marshal": marshal,
		"add":     func(a, b int) int { return a + b },
		"safe": func(s string) template.HTML {
			return template.HTML(s) //nolint:gosec
		},
	}

	// Merge custom functions
	maps.Copy(funcs, customFuncs)

	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templates, "*.html")
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		config: config,
		tmpl:   tmpl,
	}, nil
}

func marshal(value any) string {
	buf := new(bytes.Buffer)

	if err := json.NewEncoder(buf).Encode(value); err != nil {
		panic(errors.New("context can only be json serializable"))
	}

	return buf.String()
}
