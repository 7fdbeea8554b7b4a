// Package subst holds the ordered dictionaries that drive a design export:
// literal text replacements applied to markings, names and file names, and
// numeric variables pushed into design units.
//
// Both dictionaries keep insertion order. Replacement is applied key by key
// in that order, so overlapping keys (or a value that contains a later key)
// resolve by position rather than by any notion of specificity.
package subst

import (
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Dictionary is an insertion-ordered mapping from search text to
// replacement text.
type Dictionary struct {
	m *orderedmap.OrderedMap[string, string]
}

// New returns an empty dictionary.
func New() *Dictionary {
	return &Dictionary{m: orderedmap.New[string, string]()}
}

// FromPairs builds a dictionary from alternating key/value arguments.
// A trailing key without a value is ignored.
func FromPairs(kv ...string) *Dictionary {
	d := New()
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

// Set inserts or overwrites key. An overwritten key keeps its original
// position.
func (d *Dictionary) Set(key, value string) {
	d.m.Set(key, value)
}

// Get returns the value stored for key.
func (d *Dictionary) Get(key string) (string, bool) {
	return d.m.Get(key)
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return d.m.Len()
}

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []string {
	keys := make([]string, 0, d.Len())
	d.Each(func(k, _ string) { keys = append(keys, k) })
	return keys
}

// Each calls fn for every entry in insertion order.
func (d *Dictionary) Each(fn func(key, value string)) {
	if d == nil {
		return
	}
	for p := d.m.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// Clone returns an independent copy preserving order.
func (d *Dictionary) Clone() *Dictionary {
	c := New()
	d.Each(c.Set)
	return c
}

// Replace applies every entry to s as a literal substring replacement, in
// insertion order, feeding the output of each step into the next. Empty
// keys are skipped.
func (d *Dictionary) Replace(s string) string {
	d.Each(func(k, v string) {
		if k == "" {
			return
		}
		s = strings.ReplaceAll(s, k, v)
	})
	return s
}

// Variables is an insertion-ordered mapping from variable name to value.
type Variables struct {
	m *orderedmap.OrderedMap[string, float64]
}

// NewVariables returns an empty variable set.
func NewVariables() *Variables {
	return &Variables{m: orderedmap.New[string, float64]()}
}

// Set inserts or overwrites a variable.
func (v *Variables) Set(name string, value float64) {
	v.m.Set(name, value)
}

// Get returns the value of a variable.
func (v *Variables) Get(name string) (float64, bool) {
	return v.m.Get(name)
}

// Len returns the number of variables.
func (v *Variables) Len() int {
	if v == nil {
		return 0
	}
	return v.m.Len()
}

// Each calls fn for every variable in insertion order.
func (v *Variables) Each(fn func(name string, value float64)) {
	if v == nil {
		return
	}
	for p := v.m.Oldest(); p != nil; p = p.Next() {
		fn(p.Key, p.Value)
	}
}

// FormatNumber renders a value for use as replacement text. The output
// always uses a decimal point and the shortest exact representation, so
// 2 renders as "2" and 1.5 as "1.5" regardless of the host locale.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ParseNumber parses replacement or report text into a float. A decimal
// comma is accepted as well as a decimal point.
func ParseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return strconv.ParseFloat(s, 64)
}
