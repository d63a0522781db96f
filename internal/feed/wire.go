package feed

import (
	"encoding/json"
	"strconv"
)

// wireLevel accepts a price/size pair where either field may arrive as a
// JSON string or a JSON number. Polymarket's book payload uses strings;
// some mirrors and test fixtures send numbers, so this is deliberately
// more permissive than a strict string-only decode.
type wireLevel struct {
	Price flexFloat `json:"price"`
	Size  flexFloat `json:"size"`
}

// flexFloat unmarshals from either a JSON string or a JSON number. An
// unparseable value (including null) decodes to NaN, which every caller
// here already treats as "not usable" via isFinite. A field absent from
// the message is never decoded and keeps its zero value.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = flexFloat(nan())
			return nil
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		*f = flexFloat(nan())
		return nil
	}
	*f = flexFloat(v)
	return nil
}

func nan() float64 {
	var zero float64
	return zero / zero
}

// bookEvent is the subset of a Polymarket CLOB "book" websocket message
// this pipeline reads.
type bookEvent struct {
	EventType string      `json:"event_type"`
	Market    string      `json:"market"`
	AssetID   string      `json:"asset_id"`
	Bids      []wireLevel `json:"bids"`
	Asks      []wireLevel `json:"asks"`
}

func toLevels(levels []wireLevel) []bookLevel {
	out := make([]bookLevel, len(levels))
	for i, l := range levels {
		size := float64(l.Size)
		if !isFinite(size) || size < 0 {
			size = 0
		}
		out[i] = bookLevel{Price: float64(l.Price), Size: size}
	}
	return out
}
