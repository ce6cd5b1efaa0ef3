package adapter

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// The flex* types decode loosely typed platform fields. Their
// UnmarshalJSON never fails: a value of an unexpected shape decodes to the
// zero value so one bad field cannot drop a whole event.

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = flexString(strings.TrimSpace(str))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err == nil {
		*s = flexString(num.String())
		return nil
	}
	*s = ""
	return nil
}

func (s flexString) String() string { return string(s) }

type flexInt int64

func (n *flexInt) UnmarshalJSON(data []byte) error {
	*n = 0
	data = bytes.TrimSpace(data)

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = flexInt(f)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(str), 64); err == nil {
			*n = flexInt(v)
		}
	}
	return nil
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	*b = false
	data = bytes.TrimSpace(data)

	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if v, err := strconv.ParseBool(strings.TrimSpace(str)); err == nil {
			*b = flexBool(v)
		}
	}
	return nil
}

// flexTime accepts an RFC 3339 string, a unix timestamp, or an object
// carrying one of "iso", "utc" or "unix".
type flexTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(data []byte) error {
	t.Time = time.Time{}
	data = bytes.TrimSpace(data)

	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		t.Time = parseTime(str, time.UTC)
		return nil
	}

	var unix float64
	if err := json.Unmarshal(data, &unix); err == nil {
		if unix > 0 {
			t.Time = time.Unix(int64(unix), 0).UTC()
		}
		return nil
	}

	var obj struct {
		ISO  flexString `json:"iso"`
		UTC  flexString `json:"utc"`
		Unix flexInt    `json:"unix"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		switch {
		case obj.ISO != "":
			t.Time = parseTime(obj.ISO.String(), time.UTC)
		case obj.UTC != "":
			t.Time = parseTime(obj.UTC.String(), time.UTC)
		case obj.Unix > 0:
			t.Time = time.Unix(int64(obj.Unix), 0).UTC()
		}
	}
	return nil
}

// ptr returns nil for the zero time.
func (t flexTime) ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// parseTime tries the known layouts; zone-less values are read in loc.
// It returns the zero time when nothing matches.
func parseTime(s string, loc *time.Location) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timeLayouts {
		if v, err := time.ParseInLocation(layout, s, loc); err == nil {
			return v
		}
	}
	return time.Time{}
}
