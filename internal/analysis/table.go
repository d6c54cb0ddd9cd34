package analysis

import (
	"strconv"
	"time"
)

// ColumnType is the storage type inferred for a column at load time.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt64
	TypeFloat64
	TypeDatetime
	TypeBool
)

func (t ColumnType) String() string {
	switch t {
	case TypeInt64:
		return "int64"
	case TypeFloat64:
		return "float64"
	case TypeDatetime:
		return "datetime"
	case TypeBool:
		return "bool"
	default:
		return "string"
	}
}

// Column holds one typed column. Only the slice matching Type is populated;
// Missing marks absent cells in every type.
type Column struct {
	Name    string
	Type    ColumnType
	Missing []bool
	Ints    []int64
	Floats  []float64
	Times   []time.Time
	Strings []string
	Bools   []bool
}

// Len returns the number of cells in the column.
func (c *Column) Len() int { return len(c.Missing) }

// Present reports how many cells are not missing.
func (c *Column) Present() int {
	n := 0
	for _, m := range c.Missing {
		if !m {
			n++
		}
	}
	return n
}

// Format renders cell i the way the digest and preview print values.
func (c *Column) Format(i int) string {
	if c.Missing[i] {
		if c.Type == TypeDatetime {
			return "NaT"
		}
		return "NaN"
	}
	switch c.Type {
	case TypeInt64:
		return strconv.FormatInt(c.Ints[i], 10)
	case TypeFloat64:
		return formatFloat(c.Floats[i])
	case TypeDatetime:
		return formatTime(c.Times[i])
	case TypeBool:
		if c.Bools[i] {
			return "True"
		}
		return "False"
	default:
		return c.Strings[i]
	}
}

// Table is an in-memory dataset: ordered, uniquely named columns of equal length.
type Table struct {
	Name    string
	Rows    int
	Columns []*Column
}

// Column looks up a column by exact name.
func (t *Table) Column(name string) (*Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnNames returns the column names in file order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}
