// Package report aggregates a completed run's shadow_log.csv into a
// per-run summary (report.json, report.md) on shutdown. Deliberately
// lighter than the out-of-scope Day-14 GO/NO-GO tool: it aggregates only,
// it never emits a verdict. Grounded on original_source/src/report.rs's
// HeaderMeta tolerant-column-lookup and skip-bad-rows-into-counter idiom,
// simplified since this reads a schema this module wrote itself.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"razor/internal/core"
)

const reportVersion = "razor_report_v1"

// PnlByBucket totals shadow PnL by the bucket label at signal time.
// "Unknown" absorbs any row whose bucket column doesn't match Liquid or
// Thin (including blank, in case a row was written by a schema mismatch
// backfill from an older run).
type PnlByBucket struct {
	Liquid  float64 `json:"Liquid"`
	Thin    float64 `json:"Thin"`
	Unknown float64 `json:"Unknown"`
}

// Metrics is the full per-run aggregate written to report.json.
type Metrics struct {
	Version string `json:"version"`
	RunID   string `json:"run_id"`

	RowsTotal int64 `json:"rows_total"`
	RowsOK    int64 `json:"rows_ok"`
	RowsBad   int64 `json:"rows_bad"`

	TotalShadowPnl float64     `json:"total_shadow_pnl"`
	PnlByBucket    PnlByBucket `json:"pnl_by_bucket"`

	QReqSum     float64 `json:"q_req_sum"`
	QSetSum     float64 `json:"q_set_sum"`
	QFillAvgSum float64 `json:"q_fill_avg_sum"`

	LeggingRatio float64 `json:"legging_ratio"`
}

// headerMeta is the tolerant column index lookup, resolved once per file
// rather than by name on every row.
type headerMeta struct {
	marketID int
	bucket   int
	qReq     int
	qSet     int
	qFillAvg int
	pnlTotal int
}

func newHeaderMeta(header []string) (headerMeta, error) {
	meta := headerMeta{-1, -1, -1, -1, -1, -1}
	for idx, name := range header {
		switch norm(name) {
		case "marketid", "market":
			setOnce(&meta.marketID, idx)
		case "bucket":
			setOnce(&meta.bucket, idx)
		case "qreq":
			setOnce(&meta.qReq, idx)
		case "qset":
			setOnce(&meta.qSet, idx)
		case "qfillavg":
			setOnce(&meta.qFillAvg, idx)
		case "totalpnl", "pnltotal":
			setOnce(&meta.pnlTotal, idx)
		}
	}

	missing := make([]string, 0)
	if meta.marketID < 0 {
		missing = append(missing, "market_id")
	}
	if meta.bucket < 0 {
		missing = append(missing, "bucket")
	}
	if meta.qReq < 0 {
		missing = append(missing, "q_req")
	}
	if meta.qSet < 0 {
		missing = append(missing, "q_set")
	}
	if meta.qFillAvg < 0 {
		missing = append(missing, "q_fill_avg")
	}
	if meta.pnlTotal < 0 {
		missing = append(missing, "total_pnl")
	}
	if len(missing) > 0 {
		return headerMeta{}, fmt.Errorf("shadow log missing required column(s): %s", strings.Join(missing, ", "))
	}
	return meta, nil
}

func setOnce(idx *int, value int) {
	if *idx < 0 {
		*idx = value
	}
}

func norm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "_", "")
}

// Generate reads shadowLogPath and computes its Metrics. A shadow log with
// only a header (no signals settled during the run) is not an error: it
// yields zero counts and sums, with legging_ratio 1.0.
func Generate(runID, shadowLogPath string) (Metrics, error) {
	file, err := os.Open(shadowLogPath)
	if err != nil {
		return Metrics{}, fmt.Errorf("open %s: %w", shadowLogPath, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return Metrics{}, fmt.Errorf("shadow log %s is empty", shadowLogPath)
		}
		return Metrics{}, fmt.Errorf("read header %s: %w", shadowLogPath, err)
	}
	meta, err := newHeaderMeta(header)
	if err != nil {
		return Metrics{}, err
	}

	m := Metrics{Version: reportVersion, RunID: runID}

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		m.RowsTotal++
		if err != nil {
			m.RowsBad++
			continue
		}

		row, ok := parseRow(record, meta)
		if !ok {
			m.RowsBad++
			continue
		}
		m.RowsOK++

		m.TotalShadowPnl += row.pnlTotal
		switch row.bucket {
		case string(core.BucketLiquid):
			m.PnlByBucket.Liquid += row.pnlTotal
		case string(core.BucketThin):
			m.PnlByBucket.Thin += row.pnlTotal
		default:
			m.PnlByBucket.Unknown += row.pnlTotal
		}

		m.QReqSum += row.qReq
		m.QSetSum += row.qSet
		m.QFillAvgSum += row.qFillAvg
	}

	if m.QFillAvgSum > 0 {
		m.LeggingRatio = 1.0 - (m.QSetSum / m.QFillAvgSum)
	} else {
		m.LeggingRatio = 1.0
	}

	return m, nil
}

type parsedRow struct {
	bucket   string
	qReq     float64
	qSet     float64
	qFillAvg float64
	pnlTotal float64
}

func parseRow(record []string, meta headerMeta) (parsedRow, bool) {
	get := func(idx int) (string, bool) {
		if idx < 0 || idx >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[idx]), true
	}

	marketID, ok := get(meta.marketID)
	if !ok || marketID == "" {
		return parsedRow{}, false
	}
	bucket, ok := get(meta.bucket)
	if !ok || bucket == "" {
		return parsedRow{}, false
	}

	qReqStr, ok := get(meta.qReq)
	if !ok {
		return parsedRow{}, false
	}
	qReq, err := strconv.ParseFloat(qReqStr, 64)
	if err != nil {
		return parsedRow{}, false
	}

	qSetStr, ok := get(meta.qSet)
	if !ok {
		return parsedRow{}, false
	}
	qSet, err := strconv.ParseFloat(qSetStr, 64)
	if err != nil {
		return parsedRow{}, false
	}

	qFillAvgStr, ok := get(meta.qFillAvg)
	if !ok {
		return parsedRow{}, false
	}
	qFillAvg, err := strconv.ParseFloat(qFillAvgStr, 64)
	if err != nil {
		return parsedRow{}, false
	}

	pnlTotalStr, ok := get(meta.pnlTotal)
	if !ok {
		return parsedRow{}, false
	}
	pnlTotal, err := strconv.ParseFloat(pnlTotalStr, 64)
	if err != nil {
		return parsedRow{}, false
	}

	return parsedRow{bucket: bucket, qReq: qReq, qSet: qSet, qFillAvg: qFillAvg, pnlTotal: pnlTotal}, true
}
