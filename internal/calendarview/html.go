package calendarview

import (
	"embed"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates
var templates embed.FS

var widget = template.Must(template.ParseFS(templates, "templates/widget.html"))

// HTMLRenderer writes the widget markup and its bootstrap script to w.
type HTMLRenderer struct {
	w io.Writer
}

func NewHTMLRenderer(w io.Writer) *HTMLRenderer {
	return &HTMLRenderer{w: w}
}

func (r *HTMLRenderer) Render(containerID string, opts Options) error {
	data := struct {
		ContainerID string
		Options     Options
	}{
		ContainerID: containerID,
		Options:     opts,
	}
	if err := widget.ExecuteTemplate(r.w, "widget.html", data); err != nil {
		return fmt.Errorf("err rendering calendar widget: %w", err)
	}
	return nil
}
