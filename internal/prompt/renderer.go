package prompt

import (
	"fmt"

	"github.com/cbroglie/mustache"

	"github.com/hirevet/advisor/backend/internal/model/document"
)

// Renderer produces the system instruction for a session from the template
// source, a resolved document, and the configured contact address.
type Renderer struct {
	source Source
	email  string
}

// NewRenderer wires a template source and contact identifier.
func NewRenderer(source Source, email string) *Renderer {
	return &Renderer{source: source, email: email}
}

// SystemInstruction renders the instruction text for the given document.
func (r *Renderer) SystemInstruction(doc document.Document) (string, error) {
	tpl, err := r.source.Template()
	if err != nil {
		return "", err
	}
	return Render(tpl, doc.Resume, doc.JD, r.email)
}

// Render substitutes the three recognized placeholders into the template.
// Placeholders beyond resume/jd/email render empty rather than erroring; the
// template is operator-authored and rendering stays permissive.
func Render(template, resume, jd, email string) (string, error) {
	out, err := mustache.Render(template, map[string]string{
		"resume": resume,
		"jd":     jd,
		"email":  email,
	})
	if err != nil {
		return "", fmt.Errorf("prompt: render: %w", err)
	}
	return out, nil
}
