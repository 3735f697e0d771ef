package advisory

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var digestTemplates = template.Must(
	template.New("digests").Funcs(template.FuncMap{
		"inc":   func(i int) int { return i + 1 },
		"upper": strings.ToUpper,
		"clip":  clip,
		"cell":  tableCell,
	}).ParseFS(templateFS, "templates/*.tmpl"),
)

// Placeholder digests for empty results.
const (
	noResearchText     = "No research has been conducted yet."
	noVerificationText = "No verification has been performed yet."
	noStrategyText     = "No strategy has been generated yet."
)

func render(name string, data any) string {
	var buf bytes.Buffer
	if err := digestTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Sprintf("failed to render %s: %v", name, err)
	}
	return buf.String()
}

// PlanDigest renders a plan as text.
func PlanDigest(plan Plan) string {
	return render("plan.tmpl", plan)
}

// ResearchDigest renders successful task results and the source total.
func ResearchDigest(research Research) string {
	if len(research.Results) == 0 {
		return noResearchText
	}
	return render("research.tmpl", struct {
		Results []TaskResult
		Sources []Source
	}{research.Results, research.Sources()})
}

// VerificationDigest renders a verification as text.
func VerificationDigest(v Verification) string {
	if len(v.Recommendations) == 0 {
		return noVerificationText
	}
	return render("verification.tmpl", v)
}

// RenderReport renders the strategy as a markdown report dated generatedAt.
func RenderReport(s Strategy, generatedAt time.Time) string {
	if s.ExecutiveSummary == "" && len(s.Opportunities) == 0 && len(s.Actions) == 0 {
		return noStrategyText
	}
	return render("report.md.tmpl", struct {
		GeneratedAt time.Time
		Strategy    Strategy
	}{generatedAt, s})
}

// clip returns at most n runes of s.
func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func tableCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
