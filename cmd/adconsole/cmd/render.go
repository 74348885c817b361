package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmcleod/adconsole/api"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

func printTitle(w io.Writer, title string) {
	fmt.Fprintln(w, titleStyle.Render(title))
}

// printTable writes rows under a header as aligned columns.
func printTable(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

// printFields writes label/value pairs, skipping empty values.
func printFields(w io.Writer, pairs ...string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", pairs[i], pairs[i+1])
	}
	tw.Flush()
}

func printPageFooter[T any](w io.Writer, p *api.Page[T]) {
	footer := fmt.Sprintf("page %d/%d, %d total", p.Page, p.Pages, p.Total)
	if p.HasMore() {
		footer += fmt.Sprintf(" (next: ?page=%d)", p.Page+1)
	}
	fmt.Fprintln(w, mutedStyle.Render(footer))
}

func printMetrics(w io.Writer, stats *api.Statistics) {
	rows := make([][]string, 0, len(stats.Items))
	for _, m := range stats.Items {
		rows = append(rows, metricsRow(m.Date, m))
	}
	if stats.Summary != nil {
		rows = append(rows, metricsRow("total", *stats.Summary))
	}
	printTable(w, []string{"DATE", "IMPRESSIONS", "CLICKS", "CONVERSIONS", "SPEND", "CTR", "CPC", "CPM"}, rows)
}

func metricsRow(label string, m api.Metrics) []string {
	return []string{
		label,
		strconv.FormatInt(m.Impressions, 10),
		strconv.FormatInt(m.Clicks, 10),
		strconv.FormatInt(m.Conversions, 10),
		money(m.Spend),
		percent(m.CTR),
		money(m.CPC),
		money(m.CPM),
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func percent(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func optionalID(v *int64) string {
	if v == nil {
		return ""
	}
	return id(*v)
}
