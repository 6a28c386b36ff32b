package engine

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// DefaultAlertTemplate renders
// "vulnerability <name> with risk <risk> discovered on <hostname> <ip>".
const DefaultAlertTemplate = "vulnerability {{.Name}} with risk {{.Risk}} discovered on {{.Hostname}} {{.IP}}"

// Renderer formats findings as alert lines.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses an alert template over Finding fields. An empty text
// selects DefaultAlertTemplate.
func NewRenderer(text string) (*Renderer, error) {
	if text == "" {
		text = DefaultAlertTemplate
	}
	t, err := template.New("alert").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse alert template: %w", err)
	}
	return &Renderer{tmpl: t}, nil
}

// Render formats one finding. Alerts are single lines, so newlines in the
// output are replaced with spaces.
func (r *Renderer) Render(f Finding) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, f); err != nil {
		return "", fmt.Errorf("failed to render alert: %w", err)
	}
	return strings.ReplaceAll(buf.String(), "\n", " "), nil
}

// RenderAll formats findings in order.
func (r *Renderer) RenderAll(findings []Finding) ([]string, error) {
	lines := make([]string, 0, len(findings))
	for _, f := range findings {
		line, err := r.Render(f)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}
