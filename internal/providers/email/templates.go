package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

const (
	TemplateDocument      = "document"
	TemplatePasswordReset = "password_reset"
)

// Render executes the named template. The first line of the output, when
// prefixed with "Subject:", becomes the message subject.
func Render(name string, data any) (string, string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name+".html", data); err != nil {
		return "", "", fmt.Errorf("render email template %s: %w", name, err)
	}

	out := buf.String()
	subject := "Notification"
	if first, rest, ok := strings.Cut(out, "\n"); ok && strings.HasPrefix(first, "Subject:") {
		subject = strings.TrimSpace(strings.TrimPrefix(first, "Subject:"))
		out = rest
	}
	return subject, strings.TrimSpace(out), nil
}
