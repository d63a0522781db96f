package reasons

import (
	"reflect"
	"testing"
)

func TestFormatNotesSortsAndDedups(t *testing.T) {
	got := FormatNotes([]Code{LegBreak, NoTrades, NoTrades, WindowEmpty})
	want := "LEG_BREAK,NO_TRADES,WINDOW_EMPTY"
	if got != want {
		t.Fatalf("FormatNotes = %q, want %q", got, want)
	}
}

func TestParseNotesRoundTrip(t *testing.T) {
	cases := [][]Code{
		{NoTrades, WindowEmpty, MissingBid},
		{OK},
		{DedupHit, DedupHit, DedupHit},
		{},
	}
	for _, s := range cases {
		encoded := FormatNotes(s)
		decoded := ParseNotes(encoded)
		if !reflect.DeepEqual(decoded, sortDedup(s)) {
			t.Fatalf("round trip failed for %v: encoded=%q decoded=%v", s, encoded, decoded)
		}
	}
}

func sortDedup(codes []Code) []Code {
	set := make(map[Code]struct{})
	for _, c := range codes {
		if c == "" {
			continue
		}
		set[c] = struct{}{}
	}
	out := make([]Code, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
