package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"date": func(v any) string {
		switch t := v.(type) {
		case time.Time:
			return t.Format("Mon 2 Jan 2006")
		case *time.Time:
			if t == nil {
				return ""
			}
			return t.Format("Mon 2 Jan 2006")
		}
		return fmt.Sprint(v)
	},
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
}

var templates = template.Must(template.New("mail").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
