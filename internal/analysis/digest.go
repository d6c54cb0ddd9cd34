package analysis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind classifies a column for summarization.
type Kind string

const (
	KindNumeric     Kind = "numeric"
	KindDatetime    Kind = "datetime"
	KindCategorical Kind = "categorical"
	KindOther       Kind = "other"
)

// maxSamples bounds the example values listed for a categorical column.
const maxSamples = 3

// ColumnDigest is the read-only summary of one column. Exactly one of the
// stats pointers is set, matching Kind; KindOther carries none.
type ColumnDigest struct {
	Name        string            `json:"name"`
	Kind        Kind              `json:"kind"`
	TypeName    string            `json:"type"`
	Numeric     *NumericStats     `json:"numeric,omitempty"`
	Datetime    *DatetimeRange    `json:"datetime,omitempty"`
	Categorical *CategoricalStats `json:"categorical,omitempty"`
}

// NumericStats holds descriptive statistics. A nil measure is undefined.
// Mean and Std are rounded to two decimals; Min and Max keep native precision.
type NumericStats struct {
	Integer bool     `json:"integer"`
	Count   int      `json:"count"`
	Mean    *float64 `json:"mean"`
	Min     *float64 `json:"min"`
	Max     *float64 `json:"max"`
	Std     *float64 `json:"std"`
}

type DatetimeRange struct {
	Min *time.Time `json:"min"`
	Max *time.Time `json:"max"`
}

type CategoricalStats struct {
	Distinct int      `json:"distinct"`
	Samples  []string `json:"samples"`
}

// Summarize produces one digest per column, in column order.
func Summarize(t *Table) []ColumnDigest {
	out := make([]ColumnDigest, 0, len(t.Columns))
	for _, c := range t.Columns {
		out = append(out, SummarizeColumn(c))
	}
	return out
}

// SummarizeColumn computes the digest for a single column.
func SummarizeColumn(c *Column) ColumnDigest {
	d := ColumnDigest{Name: c.Name, TypeName: c.Type.String()}
	switch c.Type {
	case TypeInt64, TypeFloat64:
		d.Kind = KindNumeric
		d.Numeric = numericStats(c)
	case TypeDatetime:
		d.Kind = KindDatetime
		d.Datetime = datetimeRange(c)
	case TypeString:
		d.Kind = KindCategorical
		d.Categorical = categoricalStats(c)
	default:
		d.Kind = KindOther
	}
	return d
}

func numericStats(c *Column) *NumericStats {
	st := &NumericStats{Integer: c.Type == TypeInt64}
	var mean, m2 float64
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < c.Len(); i++ {
		if c.Missing[i] {
			continue
		}
		var x float64
		if st.Integer {
			x = float64(c.Ints[i])
		} else {
			x = c.Floats[i]
		}
		st.Count++
		// Welford
		delta := x - mean
		mean += delta / float64(st.Count)
		m2 += delta * (x - mean)
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	if st.Count == 0 {
		return st
	}
	st.Mean = ptr(round2(mean))
	st.Min = ptr(lo)
	st.Max = ptr(hi)
	if st.Count > 1 {
		st.Std = ptr(round2(math.Sqrt(m2 / float64(st.Count-1))))
	}
	return st
}

func datetimeRange(c *Column) *DatetimeRange {
	r := &DatetimeRange{}
	for i, ts := range c.Times {
		if c.Missing[i] {
			continue
		}
		if r.Min == nil || ts.Before(*r.Min) {
			r.Min = ptr(ts)
		}
		if r.Max == nil || ts.After(*r.Max) {
			r.Max = ptr(ts)
		}
	}
	return r
}

func categoricalStats(c *Column) *CategoricalStats {
	st := &CategoricalStats{Samples: []string{}}
	seen := make(map[string]struct{})
	for i, v := range c.Strings {
		if c.Missing[i] {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		if len(st.Samples) < maxSamples {
			st.Samples = append(st.Samples, v)
		}
	}
	st.Distinct = len(seen)
	return st
}

// Line renders the one-line digest used in prompts.
func (d ColumnDigest) Line() string {
	switch d.Kind {
	case KindNumeric:
		n := d.Numeric
		if n == nil {
			n = &NumericStats{}
		}
		return fmt.Sprintf("- %s (numeric): mean=%s, min=%s, max=%s, std=%s",
			d.Name, fixed2(n.Mean), n.native(n.Min), n.native(n.Max), fixed2(n.Std))
	case KindDatetime:
		r := d.Datetime
		if r == nil {
			r = &DatetimeRange{}
		}
		return fmt.Sprintf("- %s (date): range=%s to %s", d.Name, timeOrNaT(r.Min), timeOrNaT(r.Max))
	case KindCategorical:
		c := d.Categorical
		if c == nil {
			c = &CategoricalStats{}
		}
		if len(c.Samples) == 0 {
			return fmt.Sprintf("- %s (categorical): %d unique values", d.Name, c.Distinct)
		}
		return fmt.Sprintf("- %s (categorical): %d unique values, e.g. %s",
			d.Name, c.Distinct, strings.Join(c.Samples, ", "))
	default:
		return fmt.Sprintf("- %s (%s)", d.Name, d.TypeName)
	}
}

// Lines renders every digest line joined by newlines.
func Lines(ds []ColumnDigest) string {
	lines := make([]string, len(ds))
	for i, d := range ds {
		lines[i] = d.Line()
	}
	return strings.Join(lines, "\n")
}

func (n *NumericStats) native(v *float64) string {
	if v == nil {
		return "nan"
	}
	if n.Integer {
		return strconv.FormatInt(int64(*v), 10)
	}
	return formatFloat(*v)
}

func fixed2(v *float64) string {
	if v == nil {
		return "nan"
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func timeOrNaT(t *time.Time) string {
	if t == nil {
		return "NaT"
	}
	return formatTime(*t)
}

// formatFloat prints the shortest round-trip form, keeping a ".0" on
// integral values so floats stay visibly distinct from integers.
func formatFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	abs := math.Abs(v)
	var s string
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s = strconv.FormatFloat(v, 'e', -1, 64)
	} else {
		s = strconv.FormatFloat(v, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func formatTime(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02 15:04:05.000000")
	}
	return t.Format("2006-01-02 15:04:05")
}

// round2 rounds through the decimal formatter so the stored value matches
// what "%.2f" would print.
func round2(v float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	if err != nil {
		return v
	}
	return r
}

func ptr[T any](v T) *T { return &v }
