// Package report renders validation results for people and machines.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/issue"
	"github.com/BCM-HGSC/GREGoR-AnVIL-automation/pkg/validate"
)

// Format selects a renderer.
type Format string

const (
	FormatText     Format = "text"
	FormatStyled   Format = "styled"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatStyled, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("unknown format %q (want one of %s)", s, formatList())
	}
	return f, nil
}

func formatList() string {
	names := make([]string, len(Formats))
	for i, f := range Formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Write renders res to w in the given format.
func Write(w io.Writer, f Format, res *validate.Result) error {
	switch f {
	case FormatText:
		return Text(w, res.Issues)
	case FormatStyled:
		return Styled(w, res)
	case FormatMarkdown:
		_, err := io.WriteString(w, RenderMarkdown(Markdown(res), 0))
		return err
	case FormatCSV:
		return CSV(w, res.Issues)
	case FormatJSON:
		return JSON(w, res)
	}
	return fmt.Errorf("unknown format %q", f)
}

func rowText(i issue.Issue) string {
	if i.Row == nil {
		return "-"
	}
	return strconv.Itoa(*i.Row)
}

// Text writes one aligned line per issue. Column widths account for
// wide runes.
func Text(w io.Writer, issues []issue.Issue) error {
	if len(issues) == 0 {
		_, err := fmt.Fprintln(w, "No issues found.")
		return err
	}
	header := []string{"TABLE", "ROW", "FIELD", "MESSAGE"}
	rows := make([][]string, len(issues))
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for i, is := range issues {
		rows[i] = []string{is.Table, rowText(is), is.Field, is.Message}
		for j, cell := range rows[i][:3] {
			widths[j] = max(widths[j], runewidth.StringWidth(cell))
		}
	}

	line := func(cells []string) error {
		var b strings.Builder
		for j, cell := range cells {
			if j == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[j]))
			b.WriteString("  ")
		}
		_, err := fmt.Fprintln(w, b.String())
		return err
	}
	if err := line(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := line(r); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n%d issue(s)\n", len(issues))
	return err
}

// CSV writes issues with the header field,message,table_name,row.
// Table-wide issues leave row empty.
func CSV(w io.Writer, issues []issue.Issue) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"field", "message", "table_name", "row"}); err != nil {
		return err
	}
	for _, is := range issues {
		row := ""
		if is.Row != nil {
			row = strconv.Itoa(*is.Row)
		}
		if err := cw.Write([]string{is.Field, is.Message, is.Table, row}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes the result as indented JSON.
func JSON(w io.Writer, res *validate.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	r := *res
	if r.Issues == nil {
		r.Issues = []issue.Issue{}
	}
	return enc.Encode(struct {
		OK bool `json:"ok"`
		*validate.Result
	}{res.OK(), &r})
}

// Styled writes a terminal summary: one status line per table followed by
// the issues grouped by table.
func Styled(w io.Writer, res *validate.Result) error {
	byTable := make(map[string][]issue.Issue)
	var order []string
	for _, is := range res.Issues {
		if _, ok := byTable[is.Table]; !ok {
			order = append(order, is.Table)
		}
		byTable[is.Table] = append(byTable[is.Table], is)
	}

	var lines []string
	for _, s := range res.Summary {
		glyph, style := GlyphPassed, passedStyle
		switch {
		case s.Skipped:
			glyph, style = GlyphSkipped, skippedStyle
		case len(byTable[s.Table]) > 0:
			glyph, style = GlyphFailed, failedStyle
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			style.Render(glyph),
			tableNameStyle.Render(s.Table),
			statStyle.Render(fmt.Sprintf("%d records, %d issues", s.Records, len(byTable[s.Table])))))
	}
	status := passedStyle.Render(GlyphPassed + " submission passed")
	if !res.OK() {
		status = failedStyle.Render(fmt.Sprintf("%s %d issue(s)", GlyphFailed, len(res.Issues)))
	}
	lines = append(lines, "", status)

	out := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("GREGoR validation"),
		panelStyle.Render(strings.Join(lines, "\n")),
	)
	if _, err := fmt.Fprintln(w, out); err != nil {
		return err
	}

	for _, table := range order {
		if _, err := fmt.Fprintln(w, "\n"+tableNameStyle.Render(table)); err != nil {
			return err
		}
		for _, is := range byTable[table] {
			if _, err := fmt.Fprintf(w, "  %s %s %s\n",
				statStyle.Render("row "+rowText(is)), fieldStyle.Render(is.Field), is.Message); err != nil {
				return err
			}
		}
	}
	return nil
}

// Markdown builds a report document: a per-table summary followed by one
// section per table with issues.
func Markdown(res *validate.Result) string {
	var b strings.Builder
	b.WriteString("# Validation report\n\n")
	if res.OK() {
		b.WriteString("No issues found.\n\n")
	} else {
		fmt.Fprintf(&b, "**%d issue(s)**\n\n", len(res.Issues))
	}

	counts := issue.CountByTable(res.Issues)
	if len(res.Summary) > 0 {
		b.WriteString("| Table | Records | Issues | Status |\n|---|---:|---:|---|\n")
		for _, s := range res.Summary {
			status := "passed"
			switch {
			case s.Skipped:
				status = "skipped"
			case counts[s.Table] > 0:
				status = "failed"
			}
			fmt.Fprintf(&b, "| %s | %d | %d | %s |\n", s.Table, s.Records, counts[s.Table], status)
		}
		b.WriteString("\n")
	}

	var tables []string
	for _, is := range res.Issues {
		if !slices.Contains(tables, is.Table) {
			tables = append(tables, is.Table)
		}
	}
	for _, table := range tables {
		fmt.Fprintf(&b, "## %s\n\n| Row | Field | Message |\n|---:|---|---|\n", table)
		for _, is := range res.Issues {
			if is.Table != table {
				continue
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", rowText(is), escapeCell(is.Field), escapeCell(is.Message))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// RenderMarkdown renders markdown for the terminal. A width of 0 disables
// word wrap. The input is returned unchanged when rendering fails.
func RenderMarkdown(md string, width int) string {
	if strings.TrimSpace(md) == "" {
		return md
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
