package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/YuminosukeSato/scigo-testng/testng"
)

// Markdown renders the summary table followed by one row per outcome.
func Markdown(s Summary, outcomes []testng.Outcome) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Test run %s\n\n", s.RunID)
	fmt.Fprintf(&b, "%d testcases, %d not passed.\n\n", s.Total(), s.Failures())

	b.WriteString("## Summary\n\n")
	b.WriteString("| algorithm | total | passed | failed | invalid | not impl | persisted | mean MSE | median MSE | sd MSE |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, a := range s.Algorithms {
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %d | %d | %d | %s | %s | %s |\n",
			a.Algorithm, a.Total, a.Passed, a.Failed, a.Invalid, a.NotImplemented, a.Persisted,
			number(a.MSE.N, a.MSE.Mean), number(a.MSE.N, a.MSE.Median), number(a.MSE.N, a.MSE.StdDev))
	}

	b.WriteString("\n## Testcases\n\n")
	b.WriteString("| testcase | algorithm | kind | status | parameters | MSE | AUC | message |\n")
	b.WriteString("|---|---|---|---|---|---:|---:|---|\n")
	for _, o := range outcomes {
		mse, auc := "", ""
		if o.Persisted {
			mse = fmt.Sprintf("%.6g", o.MSE)
			auc = "NA"
			if o.AUC != nil {
				auc = fmt.Sprintf("%.4f", *o.AUC)
			}
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s |\n",
			cell(o.TestCase.ID), o.TestCase.Algorithm, o.TestCase.Kind(), o.Status,
			o.TunedOrDefaults(), mse, auc, cell(o.Message))
	}
	return b.Bytes()
}

func number(n int, v float64) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%.6g", v)
}

// cell escapes text for a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// WriteMarkdown writes the markdown report to w.
func WriteMarkdown(w io.Writer, s Summary, outcomes []testng.Outcome) error {
	_, err := w.Write(Markdown(s, outcomes))
	return err
}

// WriteHTML writes the markdown report rendered as a standalone HTML page.
func WriteHTML(w io.Writer, s Summary, outcomes []testng.Outcome) error {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "scigo-testng " + s.RunID,
	})
	_, err := w.Write(markdown.ToHTML(Markdown(s, outcomes), p, r))
	return err
}
