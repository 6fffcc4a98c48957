// Package views renders the Login and Dashboard pages.
package views

import (
	"embed"
	"html/template"
	"io"

	"github.com/spec-kit/dashboard-gate/internal/domain"
)

//go:embed templates/*.html
var templateFiles embed.FS

// LoginData feeds the login page.
type LoginData struct {
	AppName  string
	Username string
	Error    string
}

// DashboardData feeds the dashboard page.
type DashboardData struct {
	AppName   string
	Provision domain.ProvisionRecord
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Login renders the login page.
func (r *Renderer) Login(w io.Writer, data LoginData) error {
	return r.tmpl.ExecuteTemplate(w, "login.html", data)
}

// Dashboard renders the dashboard page.
func (r *Renderer) Dashboard(w io.Writer, data DashboardData) error {
	return r.tmpl.ExecuteTemplate(w, "dashboard.html", data)
}
