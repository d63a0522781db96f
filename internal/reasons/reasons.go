// Package reasons is the closed enumeration of diagnostic codes attached to
// shadow log rows, plus the sorted/deduplicated string encoding used to
// store a set of them in a single CSV cell.
package reasons

import (
	"sort"
	"strings"
)

// Code is one diagnostic reason code. The set is closed: downstream
// tooling groups and aggregates by these exact strings.
type Code string

const (
	OK                Code = "OK"
	NoTrades          Code = "NO_TRADES"
	WindowEmpty       Code = "WINDOW_EMPTY"
	MissingBid        Code = "MISSING_BID"
	MissingBook       Code = "MISSING_BOOK"
	LegBreak          Code = "LEG_BREAK"
	BucketThinNan     Code = "BUCKET_THIN_NAN"
	DepthUnitSuspect  Code = "DEPTH_UNIT_SUSPECT"
	DedupHit          Code = "DEDUP_HIT"
	RoundGateBlocked  Code = "ROUND_GATE_BLOCKED"
	WindowDataGap     Code = "WINDOW_DATA_GAP"
	InvalidSignal     Code = "INVALID_SIGNAL"
	InvalidPrice      Code = "INVALID_PRICE"
	InvalidQty        Code = "INVALID_QTY"
	LegsMismatch      Code = "LEGS_MISMATCH"
	SignalTooOld      Code = "SIGNAL_TOO_OLD"
	FillSharePctZero  Code = "FILL_SHARE_P25_ZERO"
	InternalError     Code = "INTERNAL_ERROR"
)

// FormatNotes renders a set of reason codes as a sorted, deduplicated,
// comma-joined string. An empty set renders as the empty string; callers
// that want an explicit "nothing to report" marker append reasons.OK
// themselves before calling this.
func FormatNotes(codes []Code) string {
	set := make(map[Code]struct{}, len(codes))
	for _, c := range codes {
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}

// ParseNotes is the exact inverse of FormatNotes: it splits on commas,
// trims whitespace, drops empties, and returns the sorted deduplicated set
// of codes encoded in s.
func ParseNotes(s string) []Code {
	parts := strings.Split(s, ",")
	set := make(map[Code]struct{}, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		set[Code(p)] = struct{}{}
	}
	out := make([]Code, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
