package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/ppiankov/fieldscout/internal/model"
	"github.com/ppiankov/fieldscout/internal/retrieve"
)

// printer writes human-readable results, colored when stdout is a terminal
type printer struct {
	w      io.Writer
	colors map[string]*color.Color
}

func newPrinter(w io.Writer, disableColor bool) *printer {
	if disableColor || !isTerminal(os.Stdout) {
		color.NoColor = true
	}
	return &printer{
		w: w,
		colors: map[string]*color.Color{
			"green":  color.New(color.FgGreen),
			"yellow": color.New(color.FgYellow),
			"red":    color.New(color.FgRed),
			"cyan":   color.New(color.FgCyan),
			"bold":   color.New(color.Bold),
		},
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func (p *printer) printf(c, format string, a ...any) {
	if col, ok := p.colors[c]; ok {
		_, _ = col.Fprintf(p.w, format, a...)
		return
	}
	_, _ = fmt.Fprintf(p.w, format, a...)
}

func (p *printer) outcome(o model.Outcome) {
	if !o.Matched() {
		p.printf("yellow", "? %s: no match\n", o.Field.Name)
		if o.NoMatch != nil {
			p.printf("", "    %s\n", o.NoMatch.Recommendation)
		}
		return
	}

	m := o.Match
	p.printf("green", "✓ %s", o.Field.Name)
	p.printf("", " <- %s (%s, %.2f)\n", m.SourceDocID, m.MatchType, m.ConfidenceScore)
	if m.HasValue() {
		p.printf("bold", "    %s\n", m.Value())
	} else {
		p.printf("yellow", "    no clean value extracted\n")
	}
	if verbose && m.MatchReason != "" {
		p.printf("cyan", "    %s\n", m.MatchReason)
	}
}

func (p *printer) trace(attempts []retrieve.Attempt) {
	for _, a := range attempts {
		switch {
		case a.Candidate == nil:
			p.printf("", "    %-10s no candidate\n", a.Strategy)
		case a.Accepted:
			p.printf("green", "    %-10s %.3f >= %.2f  %s\n", a.Strategy, a.Candidate.Score, a.Threshold, a.Candidate.DocumentID)
		default:
			p.printf("", "    %-10s %.3f <  %.2f  %s\n", a.Strategy, a.Candidate.Score, a.Threshold, a.Candidate.DocumentID)
		}
	}
}

func (p *printer) ranked(field string, docs []model.RankedDocument) {
	p.printf("bold", "%s\n", field)
	if len(docs) == 0 {
		p.printf("yellow", "  no documents\n")
		return
	}
	for i, d := range docs {
		p.printf("", "  %d. %-20s %.3f\n", i+1, d.Document.ID, d.Score)
	}
}

func (p *printer) validation(r model.ValidationResult) {
	switch {
	case r.IsValid:
		p.printf("green", "  ✓ %s", r.FieldName)
	case r.Severity == model.SeverityCritical:
		p.printf("red", "  ✗ %s", r.FieldName)
	default:
		p.printf("yellow", "  ! %s", r.FieldName)
	}
	if r.Message != "" {
		p.printf("", ": %s", r.Message)
	}
	p.printf("", " [%s]\n", r.RuleName)
}

func (p *printer) summary(report *model.FillReport) {
	s := report.Summary
	p.printf("bold", "\n%s: %d/%d fields filled (%.1f%%)\n", report.Domain, s.Filled, s.TotalFields, s.FillRate)

	strategies := make([]string, 0, len(s.ByStrategy))
	for k := range s.ByStrategy {
		strategies = append(strategies, string(k))
	}
	sort.Strings(strategies)
	parts := make([]string, len(strategies))
	for i, k := range strategies {
		parts[i] = fmt.Sprintf("%s=%d", k, s.ByStrategy[model.MatchType(k)])
	}
	if len(parts) > 0 {
		p.printf("", "  strategies: %s\n", strings.Join(parts, " "))
	}
	if s.InvalidValues > 0 {
		p.printf("yellow", "  invalid values: %d\n", s.InvalidValues)
	}
	if s.Compliant {
		p.printf("green", "  compliant\n")
	} else {
		p.printf("red", "  not compliant\n")
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
