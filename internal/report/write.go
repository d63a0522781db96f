package report

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteJSON marshals m to path as indented JSON.
func WriteJSON(path string, m Metrics) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report metrics: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// WriteMarkdown renders m as a short human-readable summary table.
func WriteMarkdown(path string, m Metrics) error {
	var b []byte
	b = appendLine(b, fmt.Sprintf("# Shadow run report: %s", m.RunID))
	b = appendLine(b, "")
	b = appendLine(b, fmt.Sprintf("Rows: %d total, %d ok, %d bad", m.RowsTotal, m.RowsOK, m.RowsBad))
	b = appendLine(b, "")
	b = appendLine(b, "| metric | value |")
	b = appendLine(b, "|---|---|")
	b = appendLine(b, fmt.Sprintf("| total_shadow_pnl | %v |", m.TotalShadowPnl))
	b = appendLine(b, fmt.Sprintf("| pnl_by_bucket.Liquid | %v |", m.PnlByBucket.Liquid))
	b = appendLine(b, fmt.Sprintf("| pnl_by_bucket.Thin | %v |", m.PnlByBucket.Thin))
	b = appendLine(b, fmt.Sprintf("| pnl_by_bucket.Unknown | %v |", m.PnlByBucket.Unknown))
	b = appendLine(b, fmt.Sprintf("| q_req_sum | %v |", m.QReqSum))
	b = appendLine(b, fmt.Sprintf("| q_set_sum | %v |", m.QSetSum))
	b = appendLine(b, fmt.Sprintf("| q_fill_avg_sum | %v |", m.QFillAvgSum))
	b = appendLine(b, fmt.Sprintf("| legging_ratio | %v |", m.LeggingRatio))

	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func appendLine(b []byte, line string) []byte {
	b = append(b, []byte(line)...)
	return append(b, '\n')
}
