package normalize

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Count is a non-negative counter decoded tolerantly: numbers, numeric
// strings and null are accepted; anything else decodes to 0.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	*c = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		var s string
		if json.Unmarshal(data, &s) != nil {
			return nil
		}
		parsed, perr := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if perr != nil {
			return nil
		}
		f = parsed
	}

	if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	*c = Count(f)
	return nil
}

// Int returns the counter as an int.
func (c Count) Int() int {
	return int(c)
}

// StringList decodes either a single string or a list of strings. Card
// metadata is hand-written YAML, so both shapes occur for the same key.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *StringList) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single != "" {
			*l = StringList{single}
		}
		return nil
	}

	var raw []any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	out := make(StringList, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}

// timestampLayouts are tried in order when decoding a Timestamp.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// Timestamp is a time decoded tolerantly from hand-written card metadata.
// RFC 3339 and plain dates are accepted; anything else is the zero time.
type Timestamp time.Time

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	*ts = Timestamp{}

	var s string
	if json.Unmarshal(bytes.TrimSpace(data), &s) != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts = Timestamp(t.UTC())
			return nil
		}
	}
	return nil
}

// Time returns the timestamp as a time.Time.
func (ts Timestamp) Time() time.Time {
	return time.Time(ts)
}
