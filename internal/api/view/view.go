// Package view renders the minimal server-side pages. Each page template
// defines "content" (and optionally "title") and is executed through the
// shared "base" layout.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/d60-Lab/travel-tales/internal/api/middleware"
)

//go:embed templates/*.html
var files embed.FS

const layout = "templates/base.html"

var funcs = template.FuncMap{
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
	"excerpt": func(s string, n int) string {
		if utf8.RuneCountInString(s) <= n {
			return s
		}
		return string([]rune(s)[:n]) + "…"
	},
}

// Renderer implements gin's render.HTMLRender over the embedded pages.
type Renderer struct {
	pages map[string]*template.Template
}

var _ render.HTMLRender = (*Renderer)(nil)

func New() (*Renderer, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(files, layout)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	names, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		if name == layout {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(files, name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(path.Base(name), ".html")] = t
	}
	return r, nil
}

// Instance resolves a page by name ("home", "post", ...).
func (r *Renderer) Instance(name string, data any) render.Render {
	t, ok := r.pages[name]
	if !ok {
		t = r.pages["error"]
		data = gin.H{"Status": http.StatusInternalServerError, "Message": "page " + name + " not found"}
	}
	return render.HTML{Template: t, Name: "base", Data: data}
}

// Page renders name with data plus the fields every page reads.
func Page(c *gin.Context, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["CurrentUser"] = middleware.IdentityFrom(c)
	if _, ok := data["Error"]; !ok {
		data["Error"] = ""
	}
	c.HTML(status, name, data)
}

// Error is the browser-side error page; it matches middleware.ErrorRenderer.
func Error(c *gin.Context, status int, msg string) {
	Page(c, status, "error", gin.H{"Status": status, "Message": msg})
	c.Abort()
}
