// Package web embeds the HTML views and browser assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Funcs are available to every view.
var Funcs = template.FuncMap{
	// safe marks post content that was already sanitized on write.
	"safe": func(s string) template.HTML { return template.HTML(s) },
	"date": func(t time.Time) string { return t.Format("January 2, 2006") },
}

// Templates parses all views. Each view is addressed by its file name.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(Funcs).ParseFS(templateFS, "templates/*.html")
}

// Static returns the browser assets rooted at the static directory.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
