package protocol

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// LooseInt is a display-only integer. It accepts a JSON number, a numeric
// string or a hex color ("#ff0000", "0xff0000"); anything else decodes to
// zero instead of failing the whole message.
type LooseInt int

func (n *LooseInt) UnmarshalJSON(b []byte) error {
	v, _ := parseLooseInt(b)
	*n = LooseInt(v)
	return nil
}

func parseLooseInt(b []byte) (int, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		return int(f), true
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	hex := strings.TrimPrefix(s, "#")
	hex = strings.TrimPrefix(strings.TrimPrefix(hex, "0x"), "0X")
	if hex != s {
		if v, err := strconv.ParseInt(hex, 16, 64); err == nil {
			return int(v), true
		}
	}
	return 0, false
}

// LooseString is a display-only string. Numbers and booleans keep their JSON
// text; objects, arrays and null decode to "".
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	var str string
	if err := json.Unmarshal(b, &str); err == nil {
		*s = LooseString(str)
		return nil
	}
	switch {
	case len(b) == 0, b[0] == '{', b[0] == '[', bytes.Equal(b, []byte("null")):
		*s = ""
	default:
		*s = LooseString(b)
	}
	return nil
}
