// Package view holds the HTML templates served by the controllers.
package view

import (
	"cafes/form"
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// FormPage is the data for add.html and delete.html.
type FormPage struct {
	Title      string
	Action     string
	CSRFToken  string
	Fields     []form.Field
	FormErrors []string
}

type ImportPage struct {
	CSRFToken  string
	FormErrors []string
	Submitted  bool
	Imported   int
	Skipped    []RowError
}

// RowError reports a spreadsheet row that was not imported.
type RowError struct {
	Row    int
	Reason string
}

// Load parses every page and partial into one set for gin's SetHTMLTemplate.
func Load() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"yesno": func(b bool) string {
			if b {
				return "✔"
			}
			return "✘"
		},
	}).ParseFS(files, "templates/*.html")
}
