package pipeline

import (
	"log/slog"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary aggregates the outcomes of a run.
type Summary struct {
	Processed int
	CacheHits int
	Queries   int
	Written   int
	Skipped   int
	Failed    int
	Malformed int

	// Undelivered lists every record that produced no note.
	Undelivered []Outcome
}

// Add records one outcome.
func (s *Summary) Add(o Outcome) {
	s.Processed++
	if o.FromCache {
		s.CacheHits++
	} else {
		s.Queries++
	}
	switch o.Status {
	case StatusWritten:
		s.Written++
	case StatusSkipped:
		s.Skipped++
		s.Undelivered = append(s.Undelivered, o)
	default:
		s.Failed++
		s.Undelivered = append(s.Undelivered, o)
	}
}

// LogValue implements slog.LogValuer.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("processed", s.Processed),
		slog.Int("cache_hits", s.CacheHits),
		slog.Int("api_queries", s.Queries),
		slog.Int("written", s.Written),
		slog.Int("skipped", s.Skipped),
		slog.Int("failed", s.Failed),
		slog.Int("malformed_lines", s.Malformed),
	)
}

// Table renders the counters followed by one row per undelivered record.
func (s Summary) Table() string {
	rows := [][]string{
		{"Processed", strconv.Itoa(s.Processed)},
		{"Cache hits", strconv.Itoa(s.CacheHits)},
		{"API queries", strconv.Itoa(s.Queries)},
		{"Written", strconv.Itoa(s.Written)},
		{"Skipped", strconv.Itoa(s.Skipped)},
		{"Failed", strconv.Itoa(s.Failed)},
		{"Malformed lines", strconv.Itoa(s.Malformed)},
	}
	out := RenderTable([]string{"Result", "Count"}, rows, []text.Align{text.AlignLeft, text.AlignRight})
	if len(s.Undelivered) == 0 {
		return out
	}

	rows = rows[:0]
	for _, o := range s.Undelivered {
		reason := ""
		if o.Err != nil {
			reason = o.Err.Error()
		}
		rows = append(rows, []string{strconv.Itoa(o.Painting.Number), o.Painting.Title, string(o.Status), reason})
	}
	return out + "\n" + RenderTable([]string{"#", "Title", "Status", "Reason"}, rows, []text.Align{text.AlignRight})
}

// RenderTable renders rows under headers in a rounded box. Columns without
// an alignment are left-aligned.
func RenderTable(headers []string, rows [][]string, aligns []text.Align) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] != text.AlignDefault {
			align = aligns[i]
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}
