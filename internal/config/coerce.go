// internal/config/coerce.go
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Int is an integer that may be written as a YAML number or string
// ("1", "0x49"). Strings yield their leading integer and floats are
// truncated. Anything without a number leaves Valid false instead of failing
// the whole file; callers pick a default.
type Int struct {
	Value int
	Raw   string
	Set   bool
	Valid bool
}

// IntOf is a valid Int holding v.
func IntOf(v int) Int {
	return Int{Value: v, Raw: strconv.Itoa(v), Set: true, Valid: true}
}

func (i *Int) UnmarshalYAML(n *yaml.Node) error {
	i.Set = true
	i.Raw = n.Value
	if n.Kind != yaml.ScalarNode {
		i.Raw = fmt.Sprintf("<%s>", kindName(n.Kind))
		i.Valid = false
		return nil
	}
	parse := parseInt
	if n.ShortTag() == "!!float" {
		parse = parseFloat
	}
	v, err := parse(n.Value)
	i.Value, i.Valid = v, err == nil
	return nil
}

func (i Int) MarshalYAML() (any, error) {
	if i.Valid {
		return i.Value, nil
	}
	return i.Raw, nil
}

// Or returns the value when it is valid, non-zero and accepted by ok (nil
// accepts all), and def otherwise.
func (i Int) Or(def int, ok func(int) bool) int {
	if !i.Valid || i.Value == 0 {
		return def
	}
	if ok != nil && !ok(i.Value) {
		return def
	}
	return i.Value
}

// parseInt reads the leading integer of s, decimal or 0x-prefixed hex,
// and ignores whatever follows it ("2abc" is 2, "3.0" is 3).
// A leading zero is decimal.
func parseInt(s string) (int, error) {
	s = strings.TrimSpace(s)
	neg := false
	switch {
	case strings.HasPrefix(s, "-"):
		neg = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	base, isDigit := 10, isDecimal
	if len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') && isHex(s[2]) {
		base, isDigit = 16, isHex
		s = s[2:]
	}

	n := 0
	for n < len(s) && isDigit(s[n]) {
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("no integer in %q", s)
	}

	v, err := strconv.ParseInt(s[:n], base, 32)
	if err != nil {
		return 0, err
	}
	if neg {
		v = -v
	}
	return int(v), nil
}

// parseFloat truncates a YAML float toward zero.
func parseFloat(s string) (int, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, fmt.Errorf("float %q out of range", s)
	}
	return int(f), nil
}

func isDecimal(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDecimal(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	default:
		return "node"
	}
}
