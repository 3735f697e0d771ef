package advisory

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

// System prompts per stage.
const (
	plannerSystem     = "You plan market research for small retail businesses. You answer with JSON only."
	verifierSystem    = "You are a skeptical analyst who checks research for evidence and conflicts. You answer with JSON only."
	synthesizerSystem = "You are a pragmatic consultant for small businesses. You answer with JSON only."
)

// promptData contains everything a stage prompt may reference.
type promptData struct {
	BusinessType       string
	Goal               string
	AnalysisDigest     string
	ResearchDigest     string
	VerificationDigest string
	Currency           string
	MaxWeeks           int
}

// promptBuilder renders the embedded stage prompts.
type promptBuilder struct {
	templates map[string]*template.Template
}

func newPromptBuilder() (*promptBuilder, error) {
	pb := &promptBuilder{templates: make(map[string]*template.Template)}

	for _, name := range []string{"plan", "verify", "strategy"} {
		filename := fmt.Sprintf("prompts/%s.tmpl", name)
		tmpl, err := template.New(name + ".tmpl").ParseFS(promptFS, filename)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		pb.templates[name] = tmpl
	}

	return pb, nil
}

func (pb *promptBuilder) build(name string, data promptData) (string, error) {
	tmpl, ok := pb.templates[name]
	if !ok {
		return "", fmt.Errorf("unknown prompt template %q", name)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}
