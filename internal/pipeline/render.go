package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/ppiankov/fieldscout/internal/model"
)

// Renderer writes fill reports to disk
type Renderer struct{}

// NewRenderer creates a renderer
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderJSON writes the full report as indented JSON
func (r *Renderer) RenderJSON(report *model.FillReport, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return encodeJSON(w, report)
	})
}

// RenderFilledForm writes field name -> value, with "" for unresolved fields
func (r *Renderer) RenderFilledForm(report *model.FillReport, path string) error {
	return writeFile(path, func(w io.Writer) error {
		return encodeJSON(w, report.FilledForm())
	})
}

// RenderMarkdown writes a human-readable report
func (r *Renderer) RenderMarkdown(report *model.FillReport, path string) error {
	return writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, Markdown(report))
		return err
	})
}

// Render writes every non-empty output path
func (r *Renderer) Render(report *model.FillReport, jsonPath, mdPath, formPath string) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return eris.Wrap(err, "render JSON")
		}
	}
	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return eris.Wrap(err, "render markdown")
		}
	}
	if formPath != "" {
		if err := r.RenderFilledForm(report, formPath); err != nil {
			return eris.Wrap(err, "render filled form")
		}
	}
	return nil
}

// Markdown renders the report as Markdown
func Markdown(report *model.FillReport) string {
	var b strings.Builder
	s := report.Summary

	fmt.Fprintf(&b, "# Form fill report (%s)\n\n", report.Domain)
	fmt.Fprintf(&b, "Generated: %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Fields: %d\n", s.TotalFields)
	fmt.Fprintf(&b, "- Matched: %d\n", s.Matched)
	fmt.Fprintf(&b, "- Filled: %d (%.1f%%)\n", s.Filled, s.FillRate)
	fmt.Fprintf(&b, "- Unresolved: %d\n", s.Unresolved)
	fmt.Fprintf(&b, "- Invalid values: %d\n", s.InvalidValues)
	fmt.Fprintf(&b, "- Compliant: %s\n\n", yesNo(s.Compliant))

	if len(s.ByStrategy) > 0 {
		b.WriteString("| Strategy | Fields |\n|---|---|\n")
		for _, st := range append(append([]model.MatchType{}, model.Strategies...), model.MatchNone) {
			if n := s.ByStrategy[st]; n > 0 {
				fmt.Fprintf(&b, "| %s | %d |\n", st, n)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Fields\n\n")
	b.WriteString("| Field | Value | Source | Strategy | Confidence | Validation |\n")
	b.WriteString("|---|---|---|---|---|---|\n")
	for _, f := range report.Fields {
		if !f.Matched() {
			fmt.Fprintf(&b, "| %s | _not found_ | | none | | |\n", cell(f.Field.Name))
			continue
		}
		validation := ""
		if f.Validation != nil {
			validation = "ok"
			if !f.Validation.IsValid {
				validation = fmt.Sprintf("%s: %s", f.Validation.Severity, f.Validation.Message)
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %.2f | %s |\n",
			cell(f.Field.Name), cell(f.Match.Value()), cell(f.Match.SourceDocID),
			f.Match.MatchType, f.Match.ConfidenceScore, cell(validation))
	}
	b.WriteString("\n")

	var unresolved []string
	for _, f := range report.Fields {
		if f.NoMatch != nil {
			unresolved = append(unresolved, f.NoMatch.Recommendation)
		}
	}
	if len(unresolved) > 0 {
		b.WriteString("## Needs review\n\n")
		for _, rec := range unresolved {
			fmt.Fprintf(&b, "- %s\n", rec)
		}
		b.WriteString("\n")
	}

	var findings []model.ValidationResult
	for _, v := range report.CrossField {
		if !v.IsValid {
			findings = append(findings, v)
		}
	}
	rules := make([]string, 0, len(report.Compliance))
	for name := range report.Compliance {
		rules = append(rules, name)
	}
	sort.Strings(rules)
	for _, name := range rules {
		findings = append(findings, report.Compliance[name]...)
	}
	if len(findings) > 0 {
		b.WriteString("## Findings\n\n")
		for _, v := range findings {
			fmt.Fprintf(&b, "- **%s** [%s] %s: %s\n", v.Severity, v.RuleName, v.FieldName, v.Message)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

// cell escapes a value for a Markdown table
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
