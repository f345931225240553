// Package templates renders the HTML fragments patched into the viewer page
// over Datastar SSE.
package templates

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"os"
	"sync"
)

//go:embed fragments/*.html viewer.html
var files embed.FS

// funcMap is shared by every fragment.
var funcMap = template.FuncMap{
	// dict builds a map from alternating keys and values for nested templates.
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
}

// Renderer executes the fragment templates. Reload swaps them atomically.
type Renderer struct {
	templates *template.Template
	mu        sync.RWMutex
}

// New creates a renderer over the embedded fragments.
func New() (*Renderer, error) {
	tmpl, err := parse(files)
	if err != nil {
		return nil, err
	}
	return &Renderer{templates: tmpl}, nil
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcMap).ParseFS(fsys, "fragments/*.html")
}

// Page returns the viewer page.
func Page() ([]byte, error) {
	return files.ReadFile("viewer.html")
}

// Render executes the named fragment.
func (r *Renderer) Render(name string, data any) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer appends the named fragment to buf.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(buf, name, data)
}

// Reload replaces the embedded fragments with dir/fragments/*.html.
func (r *Renderer) Reload(dir string) error {
	tmpl, err := parse(os.DirFS(dir))
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
