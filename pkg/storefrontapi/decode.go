package storefrontapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var null = []byte("null")

// Flag decodes the backend's selection flag, which arrives either as a JSON boolean
// or as a string. "Y" and its true aliases select the line; any other string leaves
// it unselected.
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		*f = false
		return nil
	}

	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var n float64
	if err := json.Unmarshal(trimmed, &n); err == nil {
		*f = n != 0
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err != nil {
		return fmt.Errorf("decode flag: %w", err)
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "1", "TRUE":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Int decodes integer amounts the backend sometimes sends as strings.
type Int int64

func (i *Int) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		*i = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*i = 0
			return nil
		}
		trimmed = []byte(s)
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return fmt.Errorf("decode integer: %w", err)
	}
	if v, err := n.Int64(); err == nil {
		*i = Int(v)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("decode integer: %w", err)
	}
	*i = Int(int64(f))
	return nil
}

// Float decodes percentages the backend sometimes sends as strings.
type Float float64

func (f *Float) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		*f = 0
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("decode number: %w", err)
		}
		*f = Float(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return fmt.Errorf("decode number: %w", err)
	}
	*f = Float(v)
	return nil
}
