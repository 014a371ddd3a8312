package query

// KeyKind selects how a group key is derived from a field.
type KeyKind int

const (
	KeyField  KeyKind = iota // raw field value
	KeyHour                  // hour of day, 0-23, UTC
	KeyMinute                // "YYYY-MM-DD HH:MM", UTC
)

// MinuteLayout is the textual form of a KeyMinute group key.
const MinuteLayout = "2006-01-02 15:04"

type Key struct {
	Name  string
	Field string
	Kind  KeyKind
}

func ByField(field string) Key        { return Key{Name: field, Field: field, Kind: KeyField} }
func ByHour(name, field string) Key   { return Key{Name: name, Field: field, Kind: KeyHour} }
func ByMinute(name, field string) Key { return Key{Name: name, Field: field, Kind: KeyMinute} }

type AccKind int

const (
	AccCount      AccKind = iota // rows in group
	AccAvg                       // mean of present values, nil if none
	AccMax                       // max of present values, nil if none
	AccCountTrue                 // rows where a boolean field is true
	AccCountFalse                // rows where a boolean field is false or absent
	AccDistinct                  // sorted distinct string values
	AccAvgMinutes                // mean minutes between Field and Until, both present
)

// Accumulator is a per-group reducer. Avg, Max and AvgMinutes only consume
// present values: an absent input never counts as zero and never enters the
// denominator.
type Accumulator struct {
	Name  string
	Kind  AccKind
	Field string
	Until string
}

func Count(name string) Accumulator { return Accumulator{Name: name, Kind: AccCount} }
func Avg(name, field string) Accumulator {
	return Accumulator{Name: name, Kind: AccAvg, Field: field}
}
func Max(name, field string) Accumulator {
	return Accumulator{Name: name, Kind: AccMax, Field: field}
}
func CountTrue(name, field string) Accumulator {
	return Accumulator{Name: name, Kind: AccCountTrue, Field: field}
}
func CountFalse(name, field string) Accumulator {
	return Accumulator{Name: name, Kind: AccCountFalse, Field: field}
}
func Distinct(name, field string) Accumulator {
	return Accumulator{Name: name, Kind: AccDistinct, Field: field}
}
func AvgMinutesBetween(name, from, until string) Accumulator {
	return Accumulator{Name: name, Kind: AccAvgMinutes, Field: from, Until: until}
}

// Ratio is a projection: round(Scale * Numerator / Denominator, Places).
// Numerator and Denominator name accumulators. A zero denominator yields nil.
type Ratio struct {
	Name        string
	Numerator   string
	Denominator string
	Scale       float64
	Places      int
}

// Having keeps groups whose named count accumulator is at least Min.
type Having struct {
	Name string
	Min  int64
}

// SortKey orders by a group key, accumulator or ratio name. Nil values sort
// last in either direction. Ties keep store-native order, which is the order
// in which each group's first record was stored.
type SortKey struct {
	Name string
	Desc bool
}

func Asc(name string) SortKey  { return SortKey{Name: name} }
func Desc(name string) SortKey { return SortKey{Name: name, Desc: true} }

type Pipeline struct {
	Match        Filter
	GroupBy      []Key
	Accumulators []Accumulator
	Having       *Having
	Ratios       []Ratio
	Sort         []SortKey
	Limit        int
}

// Row is one output group. Keys holds group key values; Values holds
// accumulator and ratio results.
//
// Value types are normalized across stores: counts are int64, averages,
// maxima and ratios are float64 or nil, distinct sets are []string, hour
// keys are int and minute keys are string.
type Row struct {
	Keys   map[string]any
	Values map[string]any
}

// Lookup returns a key or value by name.
func (r Row) Lookup(name string) (any, bool) {
	if v, ok := r.Keys[name]; ok {
		return v, true
	}
	v, ok := r.Values[name]
	return v, ok
}
