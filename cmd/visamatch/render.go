package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"visamatch/internal/eligibility"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

// verdictCells flattens a result into status, explanation, and documents.
func verdictCells(r *eligibility.Result, err error) (string, string, string) {
	if err != nil {
		return "ERROR", err.Error(), ""
	}
	if r.BlockedBy != nil {
		return string(r.Status), r.BlockedBy.Reason, ""
	}
	explain := append(append([]string{}, r.Restrictions...), r.Notes...)
	return string(r.Status), strings.Join(explain, "; "), strings.Join(r.DocumentsRequired, ", ")
}

func renderSummary(w io.Writer, s eligibility.MatchSummary) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Total", "Eligible", "Conditional", "Blocked", "Errors"})
	t.AppendRow(table.Row{s.Total, s.TotalEligible, s.TotalConditional, s.TotalBlocked, s.TotalErrors})
	t.Render()
}
