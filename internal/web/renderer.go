package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/sirupsen/logrus"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded page templates. Pages are named after
// their template file ("index", "obligations", "returns", "liabilities").
type Renderer struct {
	templates *template.Template
	logger    *logrus.Logger
}

func NewRenderer(logger *logrus.Logger) (*Renderer, error) {
	templates, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Renderer{
		templates: templates,
		logger:    logger,
	}, nil
}

func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := r.templates.ExecuteTemplate(w, name, data); err != nil {
		r.logger.WithError(err).WithField("template", name).Error("Failed to render template")
	}
}
