package orchestrator

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strconv"
)

// ReportRow is one comparison line: a strategy's status plus the requested
// metric subset.
type ReportRow struct {
	Strategy string
	Status   string
	Error    string
	Metrics  map[string]float64
}

// Report is the cross-strategy comparison table, one row per task.
type Report struct {
	MetricKeys []string
	Rows       []ReportRow
}

// BuildReport assembles the comparison table from a batch's results, rows
// sorted by strategy name. Failed tasks appear with their error string and
// empty metric cells.
func BuildReport(results map[string]*Result, metricKeys []string) *Report {
	report := &Report{MetricKeys: metricKeys}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		row := ReportRow{Strategy: name, Error: res.Error}
		if res.Success {
			row.Status = "ok"
			row.Metrics = make(map[string]float64, len(metricKeys))
			for _, key := range metricKeys {
				if v, ok := res.Metrics[key]; ok {
					row.Metrics[key] = v
				}
			}
		} else {
			row.Status = "failed"
		}
		report.Rows = append(report.Rows, row)
	}
	return report
}

// WriteCSV writes the table as a flat delimited file.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := append([]string{"strategy", "status", "error"}, r.MetricKeys...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range r.Rows {
		record := []string{row.Strategy, row.Status, row.Error}
		for _, key := range r.MetricKeys {
			v, ok := row.Metrics[key]
			if !ok {
				record = append(record, "")
				continue
			}
			record = append(record, strconv.FormatFloat(v, 'f', 6, 64))
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}

// WriteCSVFile writes the table to the named file.
func (r *Report) WriteCSVFile(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	return r.WriteCSV(f)
}
