// Package view renders HTML pages from a directory of templates.
//
// A page is built from the layout in base.html, the page's own {name}.html
// and every file under partials/.
package view

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"time"
)

const (
	layoutFile  = "base.html"
	partialGlob = "partials/*.html"
)

var validName = regexp.MustCompile(`^[a-zA-Z0-9_-]*$`)

// funcs are available in every template.
var funcs = template.FuncMap{
	"year": func() int {
		return time.Now().Year()
	},
}

// View is a parsed page, ready to be executed.
type View struct {
	name string
	tmpl *template.Template
}

// Parse reads the layout, the page for name and all partials from fsys.
// An empty name renders the layout on its own.
func Parse(fsys fs.FS, name string) (*View, error) {
	// names end up in file paths, so only a conservative set of characters is allowed.
	if !validName.MatchString(name) {
		return nil, fmt.Errorf("invalid view name %q", name)
	}

	files := []string{layoutFile}
	if name != "" && name+".html" != layoutFile {
		files = append(files, name+".html")
	}

	partials, err := fs.Glob(fsys, partialGlob)
	if err != nil {
		return nil, fmt.Errorf("failed to glob for partials: %w", err)
	}
	files = append(files, partials...)

	tmpl, err := template.New(layoutFile).Funcs(funcs).ParseFS(fsys, files...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse view %q: %w", name, err)
	}

	return &View{name: name, tmpl: tmpl}, nil
}

// Render executes the view with data and writes the result to w.
func (v *View) Render(w io.Writer, data any) error {
	err := v.tmpl.Execute(w, data)
	if err != nil {
		return fmt.Errorf("failed to render view %q: %w", v.name, err)
	}
	return nil
}

// Renderer renders views by name.
type Renderer struct {
	fsys   fs.FS
	reload bool
	// views is read-only after NewRenderer.
	views map[string]*View
}

// NewRenderer parses every page in fsys up front, so template errors
// surface at startup.
func NewRenderer(fsys fs.FS) (*Renderer, error) {
	pages, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to glob for views: %w", err)
	}

	r := &Renderer{
		fsys:  fsys,
		views: make(map[string]*View, len(pages)),
	}

	for _, page := range pages {
		name := strings.TrimSuffix(path.Base(page), ".html")
		v, err := Parse(fsys, name)
		if err != nil {
			return nil, err
		}
		r.views[name] = v
	}

	return r, nil
}

// NewReloadingRenderer parses views on every render. Edits to the
// templates show up without a restart.
func NewReloadingRenderer(fsys fs.FS) *Renderer {
	return &Renderer{
		fsys:   fsys,
		reload: true,
	}
}

func (r *Renderer) Render(w io.Writer, name string, data any) error {
	v, err := r.lookup(name)
	if err != nil {
		return err
	}
	return v.Render(w, data)
}

func (r *Renderer) lookup(name string) (*View, error) {
	if r.reload {
		return Parse(r.fsys, name)
	}

	v, ok := r.views[name]
	if !ok {
		return nil, fmt.Errorf("view %q not found", name)
	}
	return v, nil
}
