package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strconv"
)

const layoutName = "base.html"

//go:embed templates/*.html
var templateFS embed.FS

// Templates holds one parsed set per page: the shared layout plus the page's
// "title" and "content" blocks.
type Templates struct {
	layout *template.Template
	pages  map[string]*template.Template
}

var funcs = template.FuncMap{
	"int": toInt,
	"add": func(a, b interface{}) int { return toInt(a) + toInt(b) },
	"sub": func(a, b interface{}) int { return toInt(a) - toInt(b) },
}

// LoadTemplates parses every page under templates/ against the layout.
func LoadTemplates() (*Templates, error) {
	return loadTemplates(templateFS, "templates")
}

func loadTemplates(fsys fs.FS, dir string) (*Templates, error) {
	layoutPath := path.Join(dir, layoutName)
	layout, err := template.New(layoutName).Funcs(funcs).ParseFS(fsys, layoutPath)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	entries, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}

	t := &Templates{layout: layout, pages: make(map[string]*template.Template)}
	for _, entry := range entries {
		name := path.Base(entry)
		if name == layoutName {
			continue
		}
		page, err := template.New(layoutName).Funcs(funcs).ParseFS(fsys, layoutPath, entry)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		t.pages[name] = page
	}
	return t, nil
}

// Names lists the renderable template names.
func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.pages)+1)
	names = append(names, layoutName)
	for name := range t.pages {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name can be rendered.
func (t *Templates) Has(name string) bool {
	_, ok := t.lookup(name)
	return ok
}

func (t *Templates) lookup(name string) (*template.Template, bool) {
	if name == layoutName {
		return t.layout, true
	}
	page, ok := t.pages[name]
	return page, ok
}

// Render executes name with data. Output is buffered so a failed execution
// never yields partial markup.
func (t *Templates) Render(name string, data map[string]interface{}) (string, error) {
	tmpl, ok := t.lookup(name)
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, layoutName, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Check executes the layout with an empty context.
func (t *Templates) Check() error {
	return t.layout.ExecuteTemplate(io.Discard, layoutName, map[string]interface{}{})
}

func toInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := strconv.Atoi(n.String())
		return i
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}
