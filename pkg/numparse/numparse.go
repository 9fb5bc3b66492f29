// Package numparse converts free-form numeric text, as typed by a user, into
// numbers. Parsing is lenient: input that cannot be read as a number becomes
// zero rather than an error.
package numparse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Float strips every character that is not a digit or a decimal point and
// parses the longest decimal prefix of the remainder, so "AED 1,500,000"
// reads as 1500000 and "1.2.3" as 1.2. Anything else is zero.
func Float(s string) float64 {
	var cleaned strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' {
			cleaned.WriteRune(r)
		}
	}

	prefix := decimalPrefix(cleaned.String())
	if prefix == "" {
		return 0
	}
	v, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return v
}

// decimalPrefix returns the longest prefix of s made of digits with at most
// one decimal point, or "" when that prefix holds no digit.
func decimalPrefix(s string) string {
	end := 0
	digits := 0
	seenPoint := false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if seenPoint {
				break
			}
			seenPoint = true
		} else {
			digits++
		}
		end++
	}
	if digits == 0 {
		return ""
	}
	return s[:end]
}

// Int reads a leading, optionally signed integer after any leading
// whitespace, so "5 years" reads as 5 and "3.9" as 3. ok is false when no
// integer could be read.
func Int(s string) (n int, ok bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	start := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == start {
		return 0, false
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return v, true
}

// PositiveIntOr reads an integer like Int and returns fallback when none is
// present or the value is not positive.
func PositiveIntOr(s string, fallback int) int {
	n, ok := Int(s)
	if !ok || n <= 0 {
		return fallback
	}
	return n
}

// Text is numeric input kept as the caller typed it. It decodes from both
// JSON/YAML numbers and strings.
type Text string

// Float parses the text leniently.
func (t Text) Float() float64 {
	return Float(string(t))
}

// PositiveIntOr parses the text as a positive integer, or returns fallback.
func (t Text) PositiveIntOr(fallback int) int {
	return PositiveIntOr(string(t), fallback)
}

// FromFloat formats a number as Text without exponent notation.
func FromFloat(v float64) Text {
	return Text(strconv.FormatFloat(v, 'f', -1, 64))
}

// UnmarshalJSON accepts a JSON string, number, bool or null.
func (t *Text) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = Text(textOf(raw))
	return nil
}

// UnmarshalYAML accepts any YAML scalar.
func (t *Text) UnmarshalYAML(node *yaml.Node) error {
	var raw interface{}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*t = Text(textOf(raw))
	return nil
}

func textOf(raw interface{}) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return cast.ToString(v)
	}
}
