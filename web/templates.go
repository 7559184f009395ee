package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin/render"
)

//go:embed templates/*.html
var files embed.FS

const layout = "base"

var functions = template.FuncMap{
	"formatDate": func(t any) string {
		switch v := t.(type) {
		case time.Time:
			if v.IsZero() {
				return ""
			}
			return v.Format("02 Jan 2006, 15:04")
		case *time.Time:
			if v == nil || v.IsZero() {
				return ""
			}
			return v.Format("02 Jan 2006, 15:04")
		}
		return ""
	},
}

// Renderer is a gin render.HTMLRender over the embedded page templates.
// Each *.page.html is parsed together with the layout and all partials.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	pages, err := fs.Glob(files, "templates/*.page.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(pages))}
	for _, p := range pages {
		ts, err := template.New("").Funcs(functions).ParseFS(files,
			"templates/base.layout.html",
			"templates/*.partial.html",
			p,
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		r.pages[path.Base(p)] = ts
	}
	return r, nil
}

// MustRenderer panics when the embedded templates do not parse.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

// Pages lists the registered page names.
func (r *Renderer) Pages() []string {
	out := make([]string, 0, len(r.pages))
	for name := range r.pages {
		out = append(out, name)
	}
	return out
}

func (r *Renderer) Instance(name string, data any) render.Render {
	ts, ok := r.pages[name]
	if !ok {
		ts = template.Must(template.New(layout).Parse("unknown page " + template.HTMLEscapeString(strings.TrimSpace(name))))
	}
	return render.HTML{Template: ts, Name: layout, Data: data}
}
